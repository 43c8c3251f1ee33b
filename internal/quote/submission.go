package quote

import (
	"time"
)

// Address is an Australian street address.
type Address struct {
	Street   string `json:"street" validate:"required,max=200"`
	Suburb   string `json:"suburb" validate:"required,max=100"`
	State    string `json:"state" validate:"required,oneof=NSW VIC QLD WA SA TAS ACT NT"`
	Postcode string `json:"postcode" validate:"required,postcode"`
}

// Contact is the customer detail captured by the quote form.
type Contact struct {
	CompanyName           string   `json:"companyName" validate:"max=200"`
	ContactName           string   `json:"contactName" validate:"required,max=200"`
	Email                 string   `json:"email" validate:"required,email"`
	Phone                 string   `json:"phone" validate:"required,min=6,max=30"`
	DeliveryAddress       Address  `json:"deliveryAddress"`
	BillingSameAsDelivery bool     `json:"billingSameAsDelivery"`
	BillingAddress        *Address `json:"billingAddress" validate:"required_if=BillingSameAsDelivery false,omitempty"`
	Notes                 string   `json:"notes" validate:"max=2000"`
}

// Submission is the body posted to the quote intake endpoint.
type Submission struct {
	Reference       string    `json:"reference"`
	SubmittedAt     time.Time `json:"submittedAt"`
	CompanyName     string    `json:"companyName,omitempty"`
	ContactName     string    `json:"contactName"`
	Email           string    `json:"email"`
	Phone           string    `json:"phone"`
	DeliveryAddress Address   `json:"deliveryAddress"`
	BillingAddress  Address   `json:"billingAddress"`
	Notes           string    `json:"notes,omitempty"`
	Flags           Flags     `json:"flags"`
	Payload
}

// NewSubmission assembles the intake body. The billing address falls back to
// the delivery address when the customer ticked "same as delivery" or left
// it blank.
func NewSubmission(reference string, contact Contact, payload Payload, flags Flags, now time.Time) Submission {
	billing := contact.DeliveryAddress
	if !contact.BillingSameAsDelivery && contact.BillingAddress != nil {
		billing = *contact.BillingAddress
	}
	return Submission{
		Reference:       reference,
		SubmittedAt:     now.UTC(),
		CompanyName:     contact.CompanyName,
		ContactName:     contact.ContactName,
		Email:           contact.Email,
		Phone:           contact.Phone,
		DeliveryAddress: contact.DeliveryAddress,
		BillingAddress:  billing,
		Notes:           contact.Notes,
		Flags:           flags,
		Payload:         payload,
	}
}
