package notification

import (
	"fmt"
	"strings"
	"time"

	"leadbridge/internal/email"
	"leadbridge/internal/events"
	"leadbridge/internal/history"
	leads "leadbridge/internal/leads/domain"

	"github.com/google/uuid"
)

// message is one notification before recipients are resolved.
type message struct {
	kind    Kind
	leadID  uuid.UUID
	actor   *uuid.UUID
	subject func(client string) string
	heading string
	intro   func(actorName string) string
	details []email.Detail
}

func subjectf(format string) func(string) string {
	return func(client string) string { return fmt.Sprintf(format, client) }
}

func actorDid(verb string) func(string) string {
	return func(actorName string) string { return actorName + " " + verb }
}

func fixed(text string) func(string) string {
	return func(string) string { return text }
}

func detail(label, value string) []email.Detail {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return []email.Detail{{Label: label, Value: value}}
}

func statusChange(from, to string) []email.Detail {
	if from == "" || from == to {
		return nil
	}
	return detail("Stav", leads.CommunicationStatus(from).Label()+" → "+leads.CommunicationStatus(to).Label())
}

func dealStatusChange(from, to string) []email.Detail {
	if from == "" || from == to {
		return nil
	}
	return detail("Stav obchodu", leads.DealStatus(from).Label()+" → "+leads.DealStatus(to).Label())
}

// messageFor maps a domain event to its notification. ok is false for events
// that notify nobody: private notes, cancelled meetings and scheduled callbacks.
func messageFor(event events.Event, loc *time.Location) (message, bool) {
	switch e := event.(type) {
	case events.LeadCreated:
		return message{
			kind:    KindLeadCreated,
			leadID:  e.LeadID,
			actor:   e.ActorID,
			subject: subjectf(email.SubjectLeadCreatedFmt),
			heading: "Nový lead",
			intro:   actorDid("založil(a) nový lead."),
		}, true
	case events.LeadUpdated:
		details := detail("Změny", strings.Join(e.Fields, ", "))
		details = append(details, statusChange(e.StatusFrom, e.StatusTo)...)
		return message{
			kind:    KindLeadUpdated,
			leadID:  e.LeadID,
			actor:   e.ActorID,
			subject: subjectf(email.SubjectLeadUpdatedFmt),
			heading: "Lead aktualizován",
			intro:   actorDid("upravil(a) lead."),
			details: details,
		}, true
	case events.NoteAdded:
		if e.IsPrivate {
			return message{}, false
		}
		return message{
			kind:    KindNoteAdded,
			leadID:  e.LeadID,
			actor:   e.ActorID,
			subject: subjectf(email.SubjectNoteAddedFmt),
			heading: "Nová poznámka",
			intro:   actorDid("přidal(a) poznámku."),
			details: detail("Poznámka", e.Body),
		}, true
	case events.MeetingScheduled:
		details := detail("Termín", leads.FormatDateTime(e.MeetingAt.In(loc)))
		details = append(details, detail("Poznámka", e.Note)...)
		return message{
			kind:    KindMeetingScheduled,
			leadID:  e.LeadID,
			actor:   e.ActorID,
			subject: subjectf(email.SubjectMeetingScheduledFmt),
			heading: "Schůzka naplánována",
			intro:   actorDid("naplánoval(a) schůzku s klientem."),
			details: details,
		}, true
	case events.MeetingCompleted:
		return message{
			kind:    KindMeetingCompleted,
			leadID:  e.LeadID,
			actor:   e.ActorID,
			subject: subjectf(email.SubjectMeetingCompletedFmt),
			heading: "Schůzka proběhla",
			intro:   actorDid("označil(a) schůzku jako proběhlou."),
			details: detail("Další krok", leads.NextAction(e.NextAction).Label()),
		}, true
	case events.DealCreated:
		details := detail("Výše úvěru", email.FormatCZK(e.LoanAmount))
		details = append(details, detail("Banka", e.Bank)...)
		return message{
			kind:    KindDealCreated,
			leadID:  e.LeadID,
			actor:   e.ActorID,
			subject: subjectf(email.SubjectDealCreatedFmt),
			heading: "Založen obchod",
			intro:   actorDid("založil(a) obchod."),
			details: details,
		}, true
	case events.DealUpdated:
		details := detail("Změny", strings.Join(e.Fields, ", "))
		details = append(details, dealStatusChange(e.StatusFrom, e.StatusTo)...)
		return message{
			kind:    KindDealUpdated,
			leadID:  e.LeadID,
			actor:   e.ActorID,
			subject: subjectf(email.SubjectDealUpdatedFmt),
			heading: "Obchod aktualizován",
			intro:   actorDid("upravil(a) obchod."),
			details: details,
		}, true
	case events.CommissionReady:
		return message{
			kind:    KindCommissionReady,
			leadID:  e.LeadID,
			actor:   e.ActorID,
			subject: subjectf(email.SubjectCommissionReadyFmt),
			heading: "Provize připravena",
			intro:   fixed("Provize z obchodu je připravena k výplatě."),
		}, true
	case events.CommissionPaid:
		part := history.PartLabel(leads.CommissionPart(e.Part))
		details := detail("Částka", email.FormatCZK(e.Amount))
		if e.AllPaid {
			details = append(details, detail("Stav", "Všechny části provize jsou vyplaceny.")...)
		}
		return message{
			kind:    KindCommissionPaid,
			leadID:  e.LeadID,
			actor:   e.ActorID,
			subject: func(client string) string { return fmt.Sprintf(email.SubjectCommissionPaidFmt, part, client) },
			heading: "Provize vyplacena",
			intro:   fixed("Byla vyplacena provize " + part + "."),
			details: details,
		}, true
	case events.CallbackDue:
		details := detail("Plánovaný hovor", leads.FormatDate(e.Date))
		details = append(details, detail("Poznámka", e.Note)...)
		return message{
			kind:    KindCallbackDue,
			leadID:  e.LeadID,
			subject: subjectf(email.SubjectCallbackDueFmt),
			heading: "Připomenutí hovoru",
			intro:   fixed("Nastal termín plánovaného hovoru. Lead byl vrácen do stavu NEW."),
			details: details,
		}, true
	}
	return message{}, false
}
