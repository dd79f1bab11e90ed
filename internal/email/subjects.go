package email

const (
	SubjectLeadCreatedFmt      = "Nový lead: %s"
	SubjectLeadUpdatedFmt      = "Lead aktualizován: %s"
	SubjectNoteAddedFmt        = "Nová poznámka: %s"
	SubjectMeetingScheduledFmt = "Schůzka naplánována: %s"
	SubjectMeetingCompletedFmt = "Schůzka proběhla: %s"
	SubjectDealCreatedFmt      = "Založen obchod: %s"
	SubjectDealUpdatedFmt      = "Obchod aktualizován: %s"
	SubjectCommissionReadyFmt  = "Provize připravena: %s"
	SubjectCommissionPaidFmt   = "Provize vyplacena %s: %s"
	SubjectCallbackDueFmt      = "Připomenutí hovoru: %s"
)
