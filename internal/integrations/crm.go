package integrations

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	perrors "github.com/p-blackswan/audit-intake/internal/errors"
)

// HubSpot v3 default association type ids.
const (
	assocDealToContact = 3
	assocTaskToContact = 204
)

// Contact is a CRM contact.
type Contact struct {
	Email     string
	FirstName string
	LastName  string
	Company   string
}

// Deal is a CRM deal attached to a contact.
type Deal struct {
	Name      string
	Amount    float64
	ContactID string
}

// Task is a CRM follow-up task attached to a contact.
type Task struct {
	Subject   string
	Body      string
	DueAt     time.Time
	ContactID string
}

type crmObject struct {
	ID           string            `json:"id,omitempty"`
	Properties   map[string]string `json:"properties"`
	Associations []crmAssociation  `json:"associations,omitempty"`
}

type crmAssociation struct {
	To    crmRef         `json:"to"`
	Types []crmAssocType `json:"types"`
}

type crmRef struct {
	ID string `json:"id"`
}

type crmAssocType struct {
	Category string `json:"associationCategory"`
	TypeID   int    `json:"associationTypeId"`
}

func associate(id string, typeID int) []crmAssociation {
	if id == "" {
		return nil
	}
	return []crmAssociation{{
		To:    crmRef{ID: id},
		Types: []crmAssocType{{Category: "HUBSPOT_DEFINED", TypeID: typeID}},
	}}
}

// CRMClient wraps the HubSpot CRM v3 objects API.
type CRMClient struct {
	api    apiClient
	logger zerolog.Logger
}

// NewCRMClient creates a CRM client. apiKey is a private app token.
func NewCRMClient(baseURL, apiKey string, logger zerolog.Logger) *CRMClient {
	return &CRMClient{
		api:    newAPIClient("crm", baseURL, apiKey, &http.Client{Timeout: 30 * time.Second}),
		logger: logger.With().Str("component", "crm").Logger(),
	}
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *CRMClient) SetHTTPClient(hc HTTPClient) {
	c.api.httpClient = hc
}

// FindContact returns the id of the contact with email, or "" if none exists.
func (c *CRMClient) FindContact(ctx context.Context, email string) (string, error) {
	search := map[string]interface{}{
		"filterGroups": []map[string]interface{}{{
			"filters": []map[string]string{{
				"propertyName": "email",
				"operator":     "EQ",
				"value":        email,
			}},
		}},
		"limit": 1,
	}
	var resp struct {
		Results []crmObject `json:"results"`
	}
	if err := c.api.do(ctx, http.MethodPost, "/crm/v3/objects/contacts/search", search, &resp); err != nil {
		return "", fmt.Errorf("searching contact: %w", err)
	}
	if len(resp.Results) == 0 {
		return "", nil
	}
	return resp.Results[0].ID, nil
}

// UpsertContact updates the contact matching ct.Email or creates it.
func (c *CRMClient) UpsertContact(ctx context.Context, ct Contact) (string, error) {
	if ct.Email == "" {
		return "", perrors.NewClientInputError("email", "contact requires an email")
	}
	props := map[string]string{
		"email":     ct.Email,
		"firstname": ct.FirstName,
		"lastname":  ct.LastName,
		"company":   ct.Company,
	}

	id, err := c.FindContact(ctx, ct.Email)
	if err != nil {
		return "", err
	}

	var out crmObject
	if id != "" {
		if err := c.api.do(ctx, http.MethodPatch, "/crm/v3/objects/contacts/"+id, crmObject{Properties: props}, &out); err != nil {
			return "", fmt.Errorf("updating contact: %w", err)
		}
		return id, nil
	}

	props["hs_lead_status"] = "NEW"
	if err := c.api.do(ctx, http.MethodPost, "/crm/v3/objects/contacts", crmObject{Properties: props}, &out); err != nil {
		return "", fmt.Errorf("creating contact: %w", err)
	}
	return out.ID, nil
}

// CreateDeal creates a deal in the default pipeline.
func (c *CRMClient) CreateDeal(ctx context.Context, d Deal) (string, error) {
	obj := crmObject{
		Properties: map[string]string{
			"dealname":  d.Name,
			"amount":    strconv.FormatFloat(d.Amount, 'f', 0, 64),
			"dealstage": "appointmentscheduled",
			"pipeline":  "default",
		},
		Associations: associate(d.ContactID, assocDealToContact),
	}
	var out crmObject
	if err := c.api.do(ctx, http.MethodPost, "/crm/v3/objects/deals", obj, &out); err != nil {
		return "", fmt.Errorf("creating deal: %w", err)
	}
	return out.ID, nil
}

// CreateTask creates a high-priority follow-up task.
func (c *CRMClient) CreateTask(ctx context.Context, t Task) (string, error) {
	obj := crmObject{
		Properties: map[string]string{
			"hs_task_subject":  t.Subject,
			"hs_task_body":     t.Body,
			"hs_task_priority": "HIGH",
			"hs_task_status":   "NOT_STARTED",
			"hs_timestamp":     t.DueAt.UTC().Format(time.RFC3339),
		},
		Associations: associate(t.ContactID, assocTaskToContact),
	}
	var out crmObject
	if err := c.api.do(ctx, http.MethodPost, "/crm/v3/objects/tasks", obj, &out); err != nil {
		return "", fmt.Errorf("creating task: %w", err)
	}
	return out.ID, nil
}

// LeadRecorder stores the CRM ids against the local lead record.
type LeadRecorder interface {
	SetLeadCRMIDs(id, contactID, dealID string) error
}

// CRMSync pushes a lead into the CRM as a contact, a deal and a follow-up task.
type CRMSync struct {
	client *CRMClient
	leads  LeadRecorder
	now    func() time.Time
}

// NewCRMSync creates the CRM integration. leads may be nil.
func NewCRMSync(c *CRMClient, leads LeadRecorder) *CRMSync {
	return &CRMSync{client: c, leads: leads, now: time.Now}
}

// Type implements Handler.
func (s *CRMSync) Type() JobType { return JobCRM }

// Handle implements Handler. The contact upsert is idempotent; a retry after a
// failed deal or task creation reuses the existing contact.
func (s *CRMSync) Handle(ctx context.Context, lead Lead) (Result, error) {
	r := lead.Report
	first, last := splitName(r.Name)

	contactID, err := s.client.UpsertContact(ctx, Contact{
		Email:     r.Email,
		FirstName: first,
		LastName:  last,
		Company:   r.Company,
	})
	if err != nil {
		return failed(err), err
	}

	dealID, err := s.client.CreateDeal(ctx, Deal{
		Name:      "AI Automation Opportunity - " + displayName(r),
		Amount:    r.EstimatedValue,
		ContactID: contactID,
	})
	if err != nil {
		return failed(err), err
	}

	taskID, err := s.client.CreateTask(ctx, Task{
		Subject:   "Follow up on AI audit: " + displayName(r),
		Body:      taskBody(lead),
		DueAt:     s.now().Add(24 * time.Hour),
		ContactID: contactID,
	})
	if err != nil {
		return failed(err), err
	}

	if s.leads != nil {
		if err := s.leads.SetLeadCRMIDs(r.ID, contactID, dealID); err != nil {
			s.client.logger.Warn().Err(err).Str("report_id", r.ID).Msg("failed to record crm ids on lead")
		}
	}

	s.client.logger.Info().
		Str("report_id", r.ID).
		Str("contact_id", contactID).
		Str("deal_id", dealID).
		Msg("lead synced to crm")

	return Result{Success: true, IDs: map[string]string{
		"contactId": contactID,
		"dealId":    dealID,
		"taskId":    taskID,
	}}, nil
}

func splitName(name string) (string, string) {
	parts := strings.Fields(name)
	switch len(parts) {
	case 0:
		return "", ""
	case 1:
		return parts[0], ""
	default:
		return parts[0], strings.Join(parts[1:], " ")
	}
}

func taskBody(lead Lead) string {
	r := lead.Report
	var b strings.Builder
	fmt.Fprintf(&b, "Pain score: %d/100\n", r.PainScore)
	fmt.Fprintf(&b, "Estimated annual value: $%.0f\n", r.EstimatedValue)
	if ind := industryOf(r); ind != "" {
		fmt.Fprintf(&b, "Industry: %s\n", ind)
	}
	if len(r.Opportunities) > 0 {
		b.WriteString("Top opportunities:\n")
		for i, o := range r.Opportunities {
			if i == 3 {
				break
			}
			fmt.Fprintf(&b, "- %s ($%.0f/mo)\n", o.Name, o.MonthlySavings)
		}
	}
	if lead.ReportURL != "" {
		fmt.Fprintf(&b, "Report: %s\n", lead.ReportURL)
	}
	return b.String()
}
