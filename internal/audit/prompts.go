package audit

// Assistant replies used by the state machine and session start.
const (
	Greeting = "Hi! I'm here to conduct a quick 3-step AI opportunity assessment for your business. " +
		"It takes about 5 minutes and you'll get a personalized report with automation opportunities and ROI estimates. " +
		"Let's start with discovery: What industry are you in, and how many employees do you have?"

	WelcomeBack = "Welcome back! I see you have an audit in progress. Would you like to:\n\n" +
		"1. Continue with your previous audit\n" +
		"2. Start a fresh audit\n\n" +
		"Reply with \"continue\" or \"start fresh\"."

	introPainPoints = "Thanks, that gives me a clear picture of your business. Now let's look at where time goes. " +
		"What manual, repetitive tasks take up most of your team's week, and where do things get stuck?"

	introContactInfo = "Great insights. Last step: what's your name, and which email should I send your AI opportunity report to?"

	introReady = "Perfect, I have everything I need. Click \"Generate Report\" and I'll prepare your AI opportunity assessment."

	shortCircuit = "Thanks, that covers everything I need! Where should I send your report? " +
		"Reply with your email address, or say \"confirm\" to use the one you gave me."

	continuePrevious = "Great, let's continue with your previous audit."

	startFresh = "No problem, let's start fresh. What industry are you in, and how many employees do you have?"

	emailPrompt = "I need a valid email address to send your report. What's the best email to reach you?"

	emailThanks = "Thanks! I'll send the report to %s. Click \"Generate Report\" to get started."

	alreadyFinished = "Your report has already been generated and sent. Feel free to start a new audit anytime."
)
