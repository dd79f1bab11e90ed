package domain

import (
	"fmt"
	"strings"
)

// LeadChanges is the result of comparing a lead before and after an edit.
type LeadChanges struct {
	Fields        []string
	ClientChanged bool
	Status        Transition
}

func (c LeadChanges) Empty() bool {
	return len(c.Fields) == 0 && !c.Status.Changed()
}

// EventType is STATUS_CHANGED when the status moved, UPDATED otherwise.
func (c LeadChanges) EventType() HistoryEventType {
	if c.Status.Changed() {
		return HistoryStatusChanged
	}
	return HistoryUpdated
}

func (c LeadChanges) Describe() string {
	parts := make([]string, 0, 2)
	if c.Status.Changed() {
		parts = append(parts, fmt.Sprintf("Stav změněn: %s → %s", c.Status.From.Label(), c.Status.To.Label()))
	}
	if len(c.Fields) > 0 {
		parts = append(parts, "Upraveno: "+strings.Join(c.Fields, ", "))
	}
	return strings.Join(parts, "; ")
}

// DiffLead compares two snapshots of the same lead.
func DiffLead(before, after Lead) LeadChanges {
	var fields []string
	add := func(changed bool, name string) {
		if changed {
			fields = append(fields, name)
		}
	}

	clientChanged := before.Client != after.Client
	add(before.Client.FirstName != after.Client.FirstName, "jméno klienta")
	add(before.Client.LastName != after.Client.LastName, "příjmení klienta")
	add(before.Client.Phone != after.Client.Phone, "telefon")
	add(before.Client.Email != after.Client.Email, "e-mail")
	add(before.Description != after.Description, "popis")
	add(!sameID(before.AdvisorID, after.AdvisorID), "poradce")
	add(before.IsPersonalContact != after.IsPersonalContact, "vlastní kontakt")

	return LeadChanges{
		Fields:        fields,
		ClientChanged: clientChanged,
		Status:        Transition{From: before.Status, To: after.Status},
	}
}

// DiffDeal lists the changed deal fields for the UPDATED history entry.
func DiffDeal(before, after Deal) (fields []string, clientChanged bool) {
	add := func(changed bool, name string) {
		if changed {
			fields = append(fields, name)
		}
	}
	clientChanged = before.Client != after.Client
	add(clientChanged, "údaje klienta")
	add(before.LoanAmount != after.LoanAmount, "výše úvěru")
	add(before.Bank != after.Bank, "banka")
	add(before.PropertyType != after.PropertyType, "typ nemovitosti")
	add(before.Status != after.Status, fmt.Sprintf("stav (%s → %s)", before.Status.Label(), after.Status.Label()))
	add(before.IsPersonalDeal != after.IsPersonalDeal, "vlastní obchod")
	return fields, clientChanged
}
