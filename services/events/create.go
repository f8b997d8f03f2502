package events

import (
	"crypto/rand"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gosimple/slug"

	"github.com/phillip/lets-hang-go/models"
)

const (
	defaultCapacity = 50
	inviteAlphabet  = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

// EventInput is the host-editable surface of an event. On update only the
// non-nil fields are written.
type EventInput struct {
	Name         *string `json:"name"`
	Description  *string `json:"description"`
	Date         *string `json:"date"`
	EndDate      *string `json:"endDate"`
	Location     *string `json:"location"`
	VenueDetails *string `json:"venueDetails"`

	FlyerURL      *string        `json:"flyerUrl"`
	BackgroundURL *string        `json:"backgroundUrl"`
	Gallery       *[]models.Link `json:"gallery"`
	Links         *[]models.Link `json:"links"`
	QuickLinks    *[]models.Link `json:"quickLinks"`

	TicketTiers      *[]models.TicketTier `json:"ticketTiers"`
	HasMultipleTiers *bool                `json:"hasMultipleTiers"`
	Capacity         *int                 `json:"capacity"`
	CostPerPerson    *int64               `json:"costPerPerson"`

	AddOns          *[]models.AddOn          `json:"addOns"`
	CustomQuestions *[]models.CustomQuestion `json:"customQuestions"`

	Category *string   `json:"category"`
	Tags     *[]string `json:"tags"`

	PrivacyType   *string         `json:"privacyType"`
	EventPassword *string         `json:"eventPassword"`
	GuestList     *[]models.Guest `json:"guestList"`

	AllowPlusOnes *bool  `json:"allowPlusOnes"`
	MaxPlusOnes   *int   `json:"maxPlusOnes"`
	PlusOneCost   *int64 `json:"plusOneCost"`

	AllowGroupRegistration *bool `json:"allowGroupRegistration"`
	MinGroupSize           *int  `json:"minGroupSize"`
	MaxGroupSize           *int  `json:"maxGroupSize"`
	GroupDiscount          *int  `json:"groupDiscount"`
}

type Host struct {
	ID     string
	Name   string
	Email  string
	Avatar string
}

func NewInviteCode() string {
	b := make([]byte, 6)
	_, _ = rand.Read(b)
	for i := range b {
		b[i] = inviteAlphabet[int(b[i])%len(inviteAlphabet)]
	}
	return string(b)
}

func validCategory(c string) bool {
	for _, v := range models.Categories {
		if v == c {
			return true
		}
	}
	return false
}

// NewEvent builds an upcoming event owned by host. name, date and location
// must be present.
func NewEvent(in EventInput, host Host, now time.Time) (*models.Event, error) {
	if in.Name == nil || strings.TrimSpace(*in.Name) == "" ||
		in.Date == nil || *in.Date == "" ||
		in.Location == nil || strings.TrimSpace(*in.Location) == "" {
		return nil, ErrMissingFields
	}

	e := &models.Event{
		Capacity:     defaultCapacity,
		Category:     "other",
		PrivacyType:  models.PrivacyPublic,
		Status:       models.EventUpcoming,
		PayoutStatus: models.PayoutPending,
		HostID:       host.ID,
		HostName:     host.Name,
		HostEmail:    host.Email,
		HostAvatar:   host.Avatar,
		Gallery:      []models.Link{},
		Links:        []models.Link{},
		QuickLinks:   []models.Link{},
		TicketTiers:  []models.TicketTier{},
		AddOns:       []models.AddOn{},
		Tags:         []string{},
		GuestList:    []models.Guest{},
		Attendees:    []models.Attendee{},
		JoinRequests: []models.JoinRequest{},
		Waitlist:     []models.WaitlistEntry{},

		CustomQuestions: []models.CustomQuestion{},

		PublishedAt: now,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := ApplyInput(e, in); err != nil {
		return nil, err
	}
	return e, nil
}

// ApplyInput overwrites the whitelisted fields present in in. Money,
// membership, host and status fields are not reachable from here.
func ApplyInput(e *models.Event, in EventInput) error {
	if in.Category != nil && *in.Category != "" && !validCategory(*in.Category) {
		return ErrInvalidCategory
	}
	if in.Capacity != nil && *in.Capacity < 1 {
		return ErrInvalidCapacity
	}
	if in.PrivacyType != nil {
		switch *in.PrivacyType {
		case models.PrivacyPublic, models.PrivacyPrivate, models.PrivacyInviteOnly, models.PrivacyPassword:
		default:
			return ErrInvalidPrivacy
		}
	}

	setString(&e.Name, in.Name)
	setString(&e.Description, in.Description)
	setString(&e.Date, in.Date)
	setString(&e.EndDate, in.EndDate)
	setString(&e.Location, in.Location)
	setString(&e.VenueDetails, in.VenueDetails)
	setString(&e.FlyerURL, in.FlyerURL)
	setString(&e.BackgroundURL, in.BackgroundURL)
	setString(&e.EventPassword, in.EventPassword)

	if in.Name != nil {
		e.Slug = slug.Make(*in.Name)
	}
	if in.Gallery != nil {
		e.Gallery = withLinkIDs(*in.Gallery)
	}
	if in.Links != nil {
		e.Links = withLinkIDs(*in.Links)
	}
	if in.QuickLinks != nil {
		e.QuickLinks = withLinkIDs(*in.QuickLinks)
	}

	if in.TicketTiers != nil {
		tiers := *in.TicketTiers
		for i := range tiers {
			if tiers[i].ID == "" {
				tiers[i].ID = uuid.NewString()
			}
		}
		e.TicketTiers = tiers
	}
	if in.HasMultipleTiers != nil {
		e.HasMultipleTiers = *in.HasMultipleTiers
	}
	if in.Capacity != nil {
		e.Capacity = *in.Capacity
	}
	if in.CostPerPerson != nil {
		e.CostPerPerson = *in.CostPerPerson
	}

	if in.AddOns != nil {
		addOns := *in.AddOns
		for i := range addOns {
			if addOns[i].ID == "" {
				addOns[i].ID = uuid.NewString()
			}
		}
		e.AddOns = addOns
	}
	if in.CustomQuestions != nil {
		qs := *in.CustomQuestions
		for i := range qs {
			if qs[i].ID == "" {
				qs[i].ID = uuid.NewString()
			}
			if qs[i].Type == "" {
				qs[i].Type = "text"
			}
		}
		e.CustomQuestions = qs
	}

	if in.Category != nil && *in.Category != "" {
		e.Category = *in.Category
	}
	if in.Tags != nil {
		e.Tags = *in.Tags
	}

	if in.PrivacyType != nil {
		e.PrivacyType = *in.PrivacyType
	}
	e.IsPrivate = e.PrivacyType != models.PrivacyPublic
	if e.PrivacyType == models.PrivacyInviteOnly && e.InviteCode == "" {
		e.InviteCode = NewInviteCode()
	}
	if in.GuestList != nil {
		e.GuestList = *in.GuestList
	}

	if in.AllowPlusOnes != nil {
		e.AllowPlusOnes = *in.AllowPlusOnes
	}
	if in.MaxPlusOnes != nil {
		e.MaxPlusOnes = *in.MaxPlusOnes
	}
	if in.PlusOneCost != nil {
		e.PlusOneCost = *in.PlusOneCost
	}
	if in.AllowGroupRegistration != nil {
		e.AllowGroupRegistration = *in.AllowGroupRegistration
	}
	if in.MinGroupSize != nil {
		e.MinGroupSize = *in.MinGroupSize
	}
	if in.MaxGroupSize != nil {
		e.MaxGroupSize = *in.MaxGroupSize
	}
	if in.GroupDiscount != nil {
		e.GroupDiscount = *in.GroupDiscount
	}
	return nil
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = strings.TrimSpace(*src)
	}
}

func withLinkIDs(links []models.Link) []models.Link {
	for i := range links {
		if links[i].ID == "" {
			links[i].ID = uuid.NewString()
		}
	}
	return links
}
