// Package validate turns raw request payloads into typed domain inputs.
// Every validator returns either the parsed value or a non-empty list of
// field errors; nothing in here touches storage.
package validate

import (
	"bytes"
	"encoding/json"
	"strconv"

	"github.com/ojeda-dev/fintrack/internal/errs"
	"github.com/ojeda-dev/fintrack/internal/finance"
)

const (
	typeRequired = "required"
	typeInvalid  = "invalid"
)

func fieldErr(field, message, typ string) errs.FieldError {
	return errs.FieldError{Field: field, Message: message, Type: typ}
}

// ID parses a path parameter as a positive integer identifier.
func ID(raw string) (int64, []errs.FieldError) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, []errs.FieldError{fieldErr("id", "id must be a number", typeInvalid)}
	}
	if id <= 0 {
		return 0, []errs.FieldError{fieldErr("id", "id must be a positive number", typeInvalid)}
	}
	return id, nil
}

func decode(body []byte, dst any) *errs.FieldError {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		fe := fieldErr("", "invalid JSON: "+err.Error(), typeInvalid)
		return &fe
	}
	return nil
}

// transactionPayload mirrors the transaction JSON body. Pointer fields let
// the same shape serve both create (required) and patch (optional).
type transactionPayload struct {
	Amount      *int64                   `json:"amount"`
	Type        *finance.TransactionType `json:"type"`
	CategoryID  *int64                   `json:"categoryId"`
	Description *string                  `json:"description"`
	Date        *string                  `json:"date"`
	Currency    *string                  `json:"currency"`
}

// TransactionCreate validates the body for POST /transactions.
func TransactionCreate(body []byte) (finance.TransactionCreate, []errs.FieldError) {
	var out finance.TransactionCreate
	var p transactionPayload
	if fe := decode(body, &p); fe != nil {
		return out, []errs.FieldError{*fe}
	}

	var ferrs []errs.FieldError
	switch {
	case p.Amount == nil:
		ferrs = append(ferrs, fieldErr("amount", "amount is required", typeRequired))
	case *p.Amount <= 0:
		ferrs = append(ferrs, fieldErr("amount", "amount must be positive", typeInvalid))
	default:
		out.Amount = *p.Amount
	}
	if p.Type == nil {
		ferrs = append(ferrs, fieldErr("type", "type is required", typeRequired))
	} else if !p.Type.Valid() {
		ferrs = append(ferrs, fieldErr("type", "type must be income or expense", typeInvalid))
	} else {
		out.Type = *p.Type
	}
	switch {
	case p.CategoryID == nil:
		ferrs = append(ferrs, fieldErr("categoryId", "categoryId is required", typeRequired))
	case *p.CategoryID <= 0:
		ferrs = append(ferrs, fieldErr("categoryId", "categoryId must be a positive number", typeInvalid))
	default:
		out.CategoryID = *p.CategoryID
	}
	if p.Description == nil || *p.Description == "" {
		ferrs = append(ferrs, fieldErr("description", "description is required", typeRequired))
	} else {
		out.Description = *p.Description
	}
	if p.Date == nil {
		ferrs = append(ferrs, fieldErr("date", "date is required", typeRequired))
	} else if d, err := finance.ParseDate(*p.Date); err != nil {
		ferrs = append(ferrs, fieldErr("date", "date must be formatted YYYY-MM-DD", typeInvalid))
	} else {
		out.Date = d
	}
	out.Currency = finance.DefaultCurrency
	if p.Currency != nil {
		if len(*p.Currency) != 3 {
			ferrs = append(ferrs, fieldErr("currency", "currency must be a 3-letter ISO code", typeInvalid))
		} else {
			out.Currency = *p.Currency
		}
	}
	return out, ferrs
}

// TransactionPatch validates the body for PUT /transactions/{id}. All
// fields are optional; present fields must still be valid.
func TransactionPatch(body []byte) (finance.TransactionPatch, []errs.FieldError) {
	var out finance.TransactionPatch
	var p transactionPayload
	if fe := decode(body, &p); fe != nil {
		return out, []errs.FieldError{*fe}
	}

	var ferrs []errs.FieldError
	if p.Amount != nil {
		if *p.Amount <= 0 {
			ferrs = append(ferrs, fieldErr("amount", "amount must be positive", typeInvalid))
		} else {
			out.Amount = p.Amount
		}
	}
	if p.Type != nil {
		if !p.Type.Valid() {
			ferrs = append(ferrs, fieldErr("type", "type must be income or expense", typeInvalid))
		} else {
			out.Type = p.Type
		}
	}
	if p.CategoryID != nil {
		if *p.CategoryID <= 0 {
			ferrs = append(ferrs, fieldErr("categoryId", "categoryId must be a positive number", typeInvalid))
		} else {
			out.CategoryID = p.CategoryID
		}
	}
	if p.Description != nil {
		if *p.Description == "" {
			ferrs = append(ferrs, fieldErr("description", "description cannot be empty", typeInvalid))
		} else {
			out.Description = p.Description
		}
	}
	if p.Date != nil {
		d, err := finance.ParseDate(*p.Date)
		if err != nil {
			ferrs = append(ferrs, fieldErr("date", "date must be formatted YYYY-MM-DD", typeInvalid))
		} else {
			out.Date = &d
		}
	}
	if p.Currency != nil {
		if len(*p.Currency) != 3 {
			ferrs = append(ferrs, fieldErr("currency", "currency must be a 3-letter ISO code", typeInvalid))
		} else {
			out.Currency = p.Currency
		}
	}
	return out, ferrs
}

type categoryPayload struct {
	Name  *string                  `json:"name"`
	Type  *finance.TransactionType `json:"type"`
	Color *string                  `json:"color"`
}

// CategoryCreate validates the body for POST /categories.
func CategoryCreate(body []byte) (finance.CategoryCreate, []errs.FieldError) {
	var out finance.CategoryCreate
	var p categoryPayload
	if fe := decode(body, &p); fe != nil {
		return out, []errs.FieldError{*fe}
	}

	var ferrs []errs.FieldError
	if p.Name == nil || *p.Name == "" {
		ferrs = append(ferrs, fieldErr("name", "name is required", typeRequired))
	} else {
		out.Name = *p.Name
	}
	if p.Type == nil {
		ferrs = append(ferrs, fieldErr("type", "type is required", typeRequired))
	} else if !p.Type.Valid() {
		ferrs = append(ferrs, fieldErr("type", "type must be income or expense", typeInvalid))
	} else {
		out.Type = *p.Type
	}
	if p.Color != nil {
		out.Color = *p.Color
	}
	return out, ferrs
}

// CategoryPatch validates the body for PUT /categories/{id}.
func CategoryPatch(body []byte) (finance.CategoryPatch, []errs.FieldError) {
	var out finance.CategoryPatch
	var p categoryPayload
	if fe := decode(body, &p); fe != nil {
		return out, []errs.FieldError{*fe}
	}

	var ferrs []errs.FieldError
	if p.Name != nil {
		if *p.Name == "" {
			ferrs = append(ferrs, fieldErr("name", "name cannot be empty", typeInvalid))
		} else {
			out.Name = p.Name
		}
	}
	if p.Type != nil {
		if !p.Type.Valid() {
			ferrs = append(ferrs, fieldErr("type", "type must be income or expense", typeInvalid))
		} else {
			out.Type = p.Type
		}
	}
	if p.Color != nil {
		out.Color = p.Color
	}
	return out, ferrs
}

type subscriptionPayload struct {
	Name            *string            `json:"name"`
	Amount          *int64             `json:"amount"`
	CategoryID      *int64             `json:"categoryId"`
	Frequency       *finance.Frequency `json:"frequency"`
	NextBillingDate *string            `json:"nextBillingDate"`
	Currency        *string            `json:"currency"`
	Active          *bool              `json:"active"`
}

// SubscriptionCreate validates the body for POST /subscriptions.
func SubscriptionCreate(body []byte) (finance.SubscriptionCreate, []errs.FieldError) {
	var out finance.SubscriptionCreate
	var p subscriptionPayload
	if fe := decode(body, &p); fe != nil {
		return out, []errs.FieldError{*fe}
	}

	var ferrs []errs.FieldError
	if p.Name == nil || *p.Name == "" {
		ferrs = append(ferrs, fieldErr("name", "name is required", typeRequired))
	} else {
		out.Name = *p.Name
	}
	switch {
	case p.Amount == nil:
		ferrs = append(ferrs, fieldErr("amount", "amount is required", typeRequired))
	case *p.Amount <= 0:
		ferrs = append(ferrs, fieldErr("amount", "amount must be positive", typeInvalid))
	default:
		out.Amount = *p.Amount
	}
	switch {
	case p.CategoryID == nil:
		ferrs = append(ferrs, fieldErr("categoryId", "categoryId is required", typeRequired))
	case *p.CategoryID <= 0:
		ferrs = append(ferrs, fieldErr("categoryId", "categoryId must be a positive number", typeInvalid))
	default:
		out.CategoryID = *p.CategoryID
	}
	if p.Frequency == nil {
		ferrs = append(ferrs, fieldErr("frequency", "frequency is required", typeRequired))
	} else if !p.Frequency.Valid() {
		ferrs = append(ferrs, fieldErr("frequency", "frequency must be daily, weekly, monthly or yearly", typeInvalid))
	} else {
		out.Frequency = *p.Frequency
	}
	if p.NextBillingDate == nil {
		ferrs = append(ferrs, fieldErr("nextBillingDate", "nextBillingDate is required", typeRequired))
	} else if d, err := finance.ParseDate(*p.NextBillingDate); err != nil {
		ferrs = append(ferrs, fieldErr("nextBillingDate", "nextBillingDate must be formatted YYYY-MM-DD", typeInvalid))
	} else {
		out.NextBillingDate = d
	}
	out.Currency = finance.DefaultCurrency
	if p.Currency != nil {
		if len(*p.Currency) != 3 {
			ferrs = append(ferrs, fieldErr("currency", "currency must be a 3-letter ISO code", typeInvalid))
		} else {
			out.Currency = *p.Currency
		}
	}
	out.Active = true
	if p.Active != nil {
		out.Active = *p.Active
	}
	return out, ferrs
}

// SubscriptionPatch validates the body for PUT /subscriptions/{id}.
func SubscriptionPatch(body []byte) (finance.SubscriptionPatch, []errs.FieldError) {
	var out finance.SubscriptionPatch
	var p subscriptionPayload
	if fe := decode(body, &p); fe != nil {
		return out, []errs.FieldError{*fe}
	}

	var ferrs []errs.FieldError
	if p.Name != nil {
		if *p.Name == "" {
			ferrs = append(ferrs, fieldErr("name", "name cannot be empty", typeInvalid))
		} else {
			out.Name = p.Name
		}
	}
	if p.Amount != nil {
		if *p.Amount <= 0 {
			ferrs = append(ferrs, fieldErr("amount", "amount must be positive", typeInvalid))
		} else {
			out.Amount = p.Amount
		}
	}
	if p.CategoryID != nil {
		if *p.CategoryID <= 0 {
			ferrs = append(ferrs, fieldErr("categoryId", "categoryId must be a positive number", typeInvalid))
		} else {
			out.CategoryID = p.CategoryID
		}
	}
	if p.Frequency != nil {
		if !p.Frequency.Valid() {
			ferrs = append(ferrs, fieldErr("frequency", "frequency must be daily, weekly, monthly or yearly", typeInvalid))
		} else {
			out.Frequency = p.Frequency
		}
	}
	if p.NextBillingDate != nil {
		d, err := finance.ParseDate(*p.NextBillingDate)
		if err != nil {
			ferrs = append(ferrs, fieldErr("nextBillingDate", "nextBillingDate must be formatted YYYY-MM-DD", typeInvalid))
		} else {
			out.NextBillingDate = &d
		}
	}
	if p.Currency != nil {
		if len(*p.Currency) != 3 {
			ferrs = append(ferrs, fieldErr("currency", "currency must be a 3-letter ISO code", typeInvalid))
		} else {
			out.Currency = p.Currency
		}
	}
	if p.Active != nil {
		out.Active = p.Active
	}
	return out, ferrs
}
