package models

import (
	"slices"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	EventDraft     = "draft"
	EventUpcoming  = "upcoming"
	EventOngoing   = "ongoing"
	EventCompleted = "completed"
	EventCancelled = "cancelled"

	PayoutPending    = "pending"
	PayoutProcessing = "processing"
	PayoutPaid       = "paid"

	PrivacyPublic     = "public"
	PrivacyPrivate    = "private"
	PrivacyInviteOnly = "invite-only"
	PrivacyPassword   = "password"

	RequestPending  = "pending"
	RequestApproved = "approved"
	RequestRejected = "rejected"
)

var Categories = []string{
	"party", "music", "food", "sports", "art", "tech", "social",
	"wedding", "corporate", "sports-tournament", "workshop", "other",
}

type TicketTier struct {
	ID        string   `bson:"id" json:"id"`
	Name      string   `bson:"name" json:"name"` // VIP, Diamond, Fan Pit
	Emoji     string   `bson:"emoji,omitempty" json:"emoji,omitempty"`
	Color     string   `bson:"color,omitempty" json:"color,omitempty"`
	Price     int64    `bson:"price" json:"price"`
	Quantity  int      `bson:"quantity" json:"quantity"`
	Sold      int      `bson:"sold" json:"sold"`
	Perks     []string `bson:"perks,omitempty" json:"perks,omitempty"`
	SortOrder int      `bson:"sort_order" json:"sortOrder"`
}

type AddOn struct {
	ID          string `bson:"id" json:"id"`
	Name        string `bson:"name" json:"name"`
	Emoji       string `bson:"emoji,omitempty" json:"emoji,omitempty"`
	Price       int64  `bson:"price" json:"price"`
	Quantity    *int   `bson:"quantity,omitempty" json:"quantity,omitempty"` // nil = unlimited
	Sold        int    `bson:"sold" json:"sold"`
	Description string `bson:"description,omitempty" json:"description,omitempty"`
}

type CustomQuestion struct {
	ID       string   `bson:"id" json:"id"`
	Question string   `bson:"question" json:"question"`
	Type     string   `bson:"type" json:"type"` // text, textarea, select, checkbox, radio
	Options  []string `bson:"options,omitempty" json:"options,omitempty"`
	Required bool     `bson:"required" json:"required"`
}

type PurchasedAddOn struct {
	AddOnID  string `bson:"add_on_id" json:"addOnId"`
	Name     string `bson:"name" json:"name"`
	Quantity int    `bson:"quantity" json:"quantity"`
	Price    int64  `bson:"price" json:"price"`
}

// TierPurchase is one attendee's holding in a single ticket tier.
type TierPurchase struct {
	TierID   string `bson:"tier_id" json:"tierId"`
	Name     string `bson:"name" json:"name"`
	Quantity int    `bson:"quantity" json:"quantity"`
}

type Response struct {
	QuestionID string `bson:"question_id" json:"questionId"`
	Question   string `bson:"question" json:"question"`
	Answer     string `bson:"answer" json:"answer"`
}

type PlusOne struct {
	Name  string `bson:"name" json:"name"`
	Email string `bson:"email,omitempty" json:"email,omitempty"`
}

type Attendee struct {
	ID             string           `bson:"id" json:"id"`
	Name           string           `bson:"name" json:"name"`
	Email          string           `bson:"email,omitempty" json:"email,omitempty"`
	Avatar         string           `bson:"avatar,omitempty" json:"avatar,omitempty"`
	JoinedAt       time.Time        `bson:"joined_at" json:"joinedAt"`
	PaymentID      string           `bson:"payment_id,omitempty" json:"paymentId,omitempty"`
	PaymentIDs     []string         `bson:"payment_ids" json:"paymentIds"`
	AmountPaid     int64            `bson:"amount_paid" json:"amountPaid"`
	TicketCount    int              `bson:"ticket_count" json:"ticketCount"`
	TicketTierID   string           `bson:"ticket_tier_id,omitempty" json:"ticketTierId,omitempty"`
	TicketTierName string           `bson:"ticket_tier_name,omitempty" json:"ticketTierName,omitempty"`
	Tiers          []TierPurchase   `bson:"tiers,omitempty" json:"tiers,omitempty"`
	AddOns         []PurchasedAddOn `bson:"add_ons,omitempty" json:"addOns,omitempty"`
	Responses      []Response       `bson:"responses,omitempty" json:"responses,omitempty"`
	PlusOnes       []PlusOne        `bson:"plus_ones,omitempty" json:"plusOnes,omitempty"`
	CheckedIn      bool             `bson:"checked_in" json:"checkedIn"`
	CheckedInAt    *time.Time       `bson:"checked_in_at,omitempty" json:"checkedInAt,omitempty"`
	GroupName      string           `bson:"group_name,omitempty" json:"groupName,omitempty"`
	IsGroupLeader  bool             `bson:"is_group_leader" json:"isGroupLeader"`
}

type JoinRequest struct {
	ID             string           `bson:"id" json:"id"`
	Name           string           `bson:"name" json:"name"`
	Email          string           `bson:"email,omitempty" json:"email,omitempty"`
	Avatar         string           `bson:"avatar,omitempty" json:"avatar,omitempty"`
	RequestedAt    time.Time        `bson:"requested_at" json:"requestedAt"`
	Status         string           `bson:"status" json:"status"`
	PaymentID      string           `bson:"payment_id,omitempty" json:"paymentId,omitempty"`
	AmountPaid     int64            `bson:"amount_paid" json:"amountPaid"`
	TicketTierID   string           `bson:"ticket_tier_id,omitempty" json:"ticketTierId,omitempty"`
	TicketTierName string           `bson:"ticket_tier_name,omitempty" json:"ticketTierName,omitempty"`
	TicketCount    int              `bson:"ticket_count" json:"ticketCount"`
	AddOns         []PurchasedAddOn `bson:"add_ons,omitempty" json:"addOns,omitempty"`
	Responses      []Response       `bson:"responses,omitempty" json:"responses,omitempty"`
}

type Guest struct {
	Email           string    `bson:"email" json:"email"`
	Name            string    `bson:"name,omitempty" json:"name,omitempty"`
	InvitedAt       time.Time `bson:"invited_at" json:"invitedAt"`
	Status          string    `bson:"status" json:"status"` // invited, registered, declined
	PlusOnesAllowed int       `bson:"plus_ones_allowed" json:"plusOnesAllowed"`
}

type WaitlistEntry struct {
	ID           string    `bson:"id" json:"id"`
	Name         string    `bson:"name" json:"name"`
	Email        string    `bson:"email,omitempty" json:"email,omitempty"`
	TicketTierID string    `bson:"ticket_tier_id,omitempty" json:"ticketTierId,omitempty"`
	JoinedAt     time.Time `bson:"joined_at" json:"joinedAt"`
}

type Link struct {
	ID      string `bson:"id" json:"id"`
	Label   string `bson:"label,omitempty" json:"label,omitempty"`
	URL     string `bson:"url" json:"url"`
	Enabled bool   `bson:"enabled,omitempty" json:"enabled,omitempty"`
}

type Event struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name         string             `bson:"name" json:"name"`
	Slug         string             `bson:"slug" json:"slug"`
	Description  string             `bson:"description,omitempty" json:"description,omitempty"`
	Date         string             `bson:"date" json:"date"`
	EndDate      string             `bson:"end_date,omitempty" json:"endDate,omitempty"`
	Location     string             `bson:"location" json:"location"`
	VenueDetails string             `bson:"venue_details,omitempty" json:"venueDetails,omitempty"`

	FlyerURL      string `bson:"flyer_url,omitempty" json:"flyerUrl,omitempty"`
	BackgroundURL string `bson:"background_url,omitempty" json:"backgroundUrl,omitempty"`
	Gallery       []Link `bson:"gallery" json:"gallery"`
	Links         []Link `bson:"links" json:"links"`
	QuickLinks    []Link `bson:"quick_links" json:"quickLinks"`

	TicketTiers      []TicketTier `bson:"ticket_tiers" json:"ticketTiers"`
	HasMultipleTiers bool         `bson:"has_multiple_tiers" json:"hasMultipleTiers"`
	Capacity         int          `bson:"capacity" json:"capacity"`
	CostPerPerson    int64        `bson:"cost_per_person" json:"costPerPerson"`

	AddOns          []AddOn          `bson:"add_ons" json:"addOns"`
	CustomQuestions []CustomQuestion `bson:"custom_questions" json:"customQuestions"`

	Category string   `bson:"category" json:"category"`
	Tags     []string `bson:"tags" json:"tags"`

	PrivacyType   string  `bson:"privacy_type" json:"privacyType"`
	IsPrivate     bool    `bson:"is_private" json:"isPrivate"`
	InviteCode    string  `bson:"invite_code,omitempty" json:"inviteCode,omitempty"`
	EventPassword string  `bson:"event_password,omitempty" json:"-"`
	GuestList     []Guest `bson:"guest_list" json:"guestList"`

	AllowPlusOnes bool  `bson:"allow_plus_ones" json:"allowPlusOnes"`
	MaxPlusOnes   int   `bson:"max_plus_ones" json:"maxPlusOnes"`
	PlusOneCost   int64 `bson:"plus_one_cost" json:"plusOneCost"`

	AllowGroupRegistration bool `bson:"allow_group_registration" json:"allowGroupRegistration"`
	MinGroupSize           int  `bson:"min_group_size" json:"minGroupSize"`
	MaxGroupSize           int  `bson:"max_group_size" json:"maxGroupSize"`
	GroupDiscount          int  `bson:"group_discount" json:"groupDiscount"`

	HostID     string `bson:"host_id" json:"hostId"`
	HostName   string `bson:"host_name" json:"hostName"`
	HostAvatar string `bson:"host_avatar,omitempty" json:"hostAvatar,omitempty"`
	HostEmail  string `bson:"host_email,omitempty" json:"hostEmail,omitempty"`

	Attendees    []Attendee      `bson:"attendees" json:"attendees"`
	JoinRequests []JoinRequest   `bson:"join_requests" json:"joinRequests"`
	Waitlist     []WaitlistEntry `bson:"waitlist" json:"waitlist"`

	Status string `bson:"status" json:"status"`

	TotalCollected    int64      `bson:"total_collected" json:"totalCollected"`
	PlatformFee       int64      `bson:"platform_fee" json:"platformFee"`
	HostEarnings      int64      `bson:"host_earnings" json:"hostEarnings"`
	PayoutStatus      string     `bson:"payout_status" json:"payoutStatus"`
	PayoutCompletedAt *time.Time `bson:"payout_completed_at,omitempty" json:"payoutCompletedAt,omitempty"`

	Version     int64     `bson:"version" json:"-"`
	PublishedAt time.Time `bson:"published_at" json:"publishedAt"`
	CreatedAt   time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt   time.Time `bson:"updated_at" json:"updatedAt"`
}

// TotalCapacity sums tier quantities for multi-tier events.
func (e *Event) TotalCapacity() int {
	if e.HasMultipleTiers && len(e.TicketTiers) > 0 {
		total := 0
		for _, t := range e.TicketTiers {
			total += t.Quantity
		}
		return total
	}
	return e.Capacity
}

// TicketsSold counts tickets held by current attendees.
func (e *Event) TicketsSold() int {
	sold := 0
	for _, a := range e.Attendees {
		if a.TicketCount > 0 {
			sold += a.TicketCount
		} else {
			sold++
		}
	}
	return sold
}

func (e *Event) FindAttendee(userID string) int {
	for i, a := range e.Attendees {
		if a.ID == userID {
			return i
		}
	}
	return -1
}

func (e *Event) FindJoinRequest(userID string) int {
	for i, r := range e.JoinRequests {
		if r.ID == userID {
			return i
		}
	}
	return -1
}

func (e *Event) FindTier(id string) int {
	for i, t := range e.TicketTiers {
		if t.ID == id {
			return i
		}
	}
	return -1
}

func (e *Event) FindAddOn(id string) int {
	for i, a := range e.AddOns {
		if a.ID == id {
			return i
		}
	}
	return -1
}

// PublicView is the event as seen by anyone but its host: contact details
// and the invite code are blanked. The receiver's slices are not touched.
func (e Event) PublicView() Event {
	e.HostEmail = ""
	e.InviteCode = ""

	e.Attendees = slices.Clone(e.Attendees)
	for i := range e.Attendees {
		e.Attendees[i].Email = ""
		e.Attendees[i].PlusOnes = slices.Clone(e.Attendees[i].PlusOnes)
		for j := range e.Attendees[i].PlusOnes {
			e.Attendees[i].PlusOnes[j].Email = ""
		}
	}
	e.JoinRequests = slices.Clone(e.JoinRequests)
	for i := range e.JoinRequests {
		e.JoinRequests[i].Email = ""
	}
	e.Waitlist = slices.Clone(e.Waitlist)
	for i := range e.Waitlist {
		e.Waitlist[i].Email = ""
	}
	e.GuestList = slices.Clone(e.GuestList)
	for i := range e.GuestList {
		e.GuestList[i].Email = ""
	}
	return e
}
