package rules

import (
	"fmt"
	"time"

	"github.com/bmarone2002/legalcalendar/internal/calendar"
	"github.com/bmarone2002/legalcalendar/internal/config"
	"github.com/bmarone2002/legalcalendar/internal/domain"
)

// attoGiuridicoRule derives statutory deadlines and their reminders from the
// act type, the procedural mode and the dated inputs. Every candidate carries
// an explanation with the formula and the legal source. Deadlines roll off
// weekends and holidays to the next business day (art. 155 c.p.c.); the
// August recess (L. 742/1969) extends positive terms when enabled in
// settings.
type attoGiuridicoRule struct{}

func (attoGiuridicoRule) ID() string    { return domain.RuleIDAttoGiuridico }
func (attoGiuridicoRule) Label() string { return "Atto giuridico (termini e promemoria)" }

func (attoGiuridicoRule) Generate(in Input) []domain.SubEventCandidate {
	s := in.Settings
	if s == nil {
		s = config.Default()
	}
	inputs := selections(in)

	actionType := ""
	actionMode := ""
	if in.Event != nil {
		actionType = string(in.Event.ActionType)
		actionMode = string(in.Event.ActionMode)
	}
	if actionType == "" {
		actionType, _ = strInput(inputs, "actionType")
	}
	if actionMode == "" {
		actionMode, _ = strInput(inputs, "actionMode")
	}
	if actionType == "" || actionMode == "" {
		return nil
	}

	var out []domain.SubEventCandidate
	switch {
	case actionType == string(domain.ActCitazione) && actionMode == string(domain.ModeDaNotificare):
		out = citazioneNotifica(inputs, s)
	case actionType == string(domain.ActCitazione) && actionMode == string(domain.ModeCostituzione):
		out = citazioneCostituzione(inputs, s)
	case actionType == string(domain.ActRicorsoOpposizione) && actionMode == string(domain.ModeDaNotificare):
		out = opposizioneNotifica(inputs, s)
	case actionType == string(domain.ActRicorsoOpposizione) && actionMode == string(domain.ModeCostituzione):
		out = opposizioneCostituzione(inputs, s)
	case actionType == string(domain.ActRicorsoTributario) && actionMode == string(domain.ModeDaNotificare):
		out = tributarioNotifica(inputs, s)
	case actionType == string(domain.ActRicorsoTributario) && actionMode == string(domain.ModeCostituzione):
		out = tributarioCostituzione(inputs, s)
	case actionType == string(domain.ActAppelloCivile) && actionMode == string(domain.ModeDaNotificare):
		out = appelloCivileNotifica(inputs, s)
	case actionType == string(domain.ActAppelloCivile) && actionMode == string(domain.ModeCostituzione):
		out = appelloCivileCostituzione(inputs, s)
	case actionType == string(domain.ActAppelloTributario) && actionMode == string(domain.ModeDaNotificare):
		out = appelloTributarioNotifica(inputs, s)
	case actionType == string(domain.ActAppelloTributario) && actionMode == string(domain.ModeCostituzione):
		out = appelloTributarioCostituzione(inputs, s)
	case actionType == string(domain.ActRicorsoCassazione) && actionMode == string(domain.ModeDaNotificare):
		out = cassazioneNotifica(inputs, s)
	case actionType == string(domain.ActRicorsoCassazione) && actionMode == string(domain.ModeCostituzione):
		out = cassazioneCostituzione(inputs, s)
	}
	return out
}

// termineDate adds a term to a base date and rolls the result forward to the
// next business day.
func termineDate(base time.Time, days int, s *config.Settings) time.Time {
	return calendar.AdjustToNextBusinessDay(calendar.AddTermDays(base, days, s), s)
}

func makeTermine(title string, base time.Time, days int, s *config.Settings, explanation string) domain.SubEventCandidate {
	return domain.SubEventCandidate{
		Title:       title,
		Kind:        domain.KindTermine,
		DueAt:       calendar.ApplyDeadlineTime(termineDate(base, days, s), s),
		Status:      domain.StatusPending,
		Priority:    1,
		RuleID:      domain.RuleIDAttoGiuridico,
		RuleParams:  map[string]any{},
		Explanation: explanation,
		CreatedBy:   domain.CreatedAutomatico,
	}
}

func makeTermineFromDate(title string, deadline time.Time, s *config.Settings, explanation string) domain.SubEventCandidate {
	return domain.SubEventCandidate{
		Title:       title,
		Kind:        domain.KindTermine,
		DueAt:       calendar.ApplyDeadlineTime(calendar.AdjustToNextBusinessDay(deadline, s), s),
		Status:      domain.StatusPending,
		Priority:    1,
		RuleID:      domain.RuleIDAttoGiuridico,
		RuleParams:  map[string]any{},
		Explanation: explanation,
		CreatedBy:   domain.CreatedAutomatico,
	}
}

func addReminders(titlePrefix string, scadenza time.Time, s *config.Settings, offsets []int) []domain.SubEventCandidate {
	out := make([]domain.SubEventCandidate, 0, len(offsets))
	for _, daysBefore := range offsets {
		abs := daysBefore
		if abs < 0 {
			abs = -abs
		}
		raw := scadenza.AddDate(0, 0, daysBefore)
		at := calendar.ApplyDeadlineTime(calendar.AdjustToNextBusinessDay(raw, s), s)
		out = append(out, domain.SubEventCandidate{
			Title:       fmt.Sprintf("%s – Promemoria (%d gg prima)", titlePrefix, abs),
			Kind:        domain.KindPromemoria,
			DueAt:       at,
			Status:      domain.StatusPending,
			Priority:    0,
			RuleID:      domain.RuleIDAttoGiuridico,
			RuleParams:  map[string]any{"daysBefore": daysBefore},
			Explanation: fmt.Sprintf("Promemoria %d giorni prima della scadenza", abs),
			CreatedBy:   domain.CreatedAutomatico,
		})
	}
	return out
}

// addMemorie171ter derives the three pre-hearing memoranda deadlines, each
// with a reminder five days ahead.
func addMemorie171ter(udienza time.Time, s *config.Settings) []domain.SubEventCandidate {
	steps := []struct {
		days  int
		label string
	}{
		{-40, "1ª Memoria 171 ter c.p.c. (40 gg prima udienza)"},
		{-20, "2ª Memoria 171 ter c.p.c. (20 gg prima udienza)"},
		{-10, "3ª Memoria 171 ter c.p.c. (10 gg prima udienza)"},
	}
	var out []domain.SubEventCandidate
	for _, o := range steps {
		termine := makeTermine(o.label, udienza, o.days, s, o.label+" – art. 171 ter c.p.c.")
		out = append(out, termine)
		out = append(out, addReminders(o.label, termine.DueAt, s, []int{-5})...)
	}
	return out
}

func addMemorieUdienza(udienza time.Time, s *config.Settings, daysBefore []int, reminderOffsets []int) []domain.SubEventCandidate {
	var out []domain.SubEventCandidate
	for _, days := range daysBefore {
		label := fmt.Sprintf("Memoria (%d gg prima udienza)", days)
		termine := makeTermine(label, udienza, -days, s,
			fmt.Sprintf("Deposito memorie entro %d giorni prima dell'udienza", days))
		out = append(out, termine)
		out = append(out, addReminders(label, termine.DueAt, s, reminderOffsets)...)
	}
	return out
}

// addMemorieLibere turns the free-form memorieLibere entries into deadlines
// with a single reminder five days ahead. Entries missing a title or a
// parseable date are skipped.
func addMemorieLibere(inputs map[string]any, s *config.Settings) []domain.SubEventCandidate {
	var out []domain.SubEventCandidate
	for _, m := range memorieLibere(inputs) {
		if m.Titolo == "" || len(m.Scadenza) < 10 {
			continue
		}
		d, err := time.ParseInLocation("2006-01-02", m.Scadenza[:10], time.Local)
		if err != nil {
			continue
		}
		scadenza := d.Add(12 * time.Hour)
		out = append(out, makeTermineFromDate(m.Titolo, scadenza, s, "Memoria/nota libera: "+m.Titolo))
		out = append(out, addReminders(m.Titolo, scadenza, s, []int{-5})...)
	}
	return out
}

func memorieLibere(inputs map[string]any) []domain.MemoriaLibera {
	v, ok := inputs["memorieLibere"]
	if !ok || v == nil {
		return nil
	}
	switch vs := v.(type) {
	case []domain.MemoriaLibera:
		return vs
	case []any:
		out := make([]domain.MemoriaLibera, 0, len(vs))
		for _, e := range vs {
			m, ok := e.(map[string]any)
			if !ok {
				continue
			}
			titolo, _ := m["titolo"].(string)
			scadenza, _ := m["scadenza"].(string)
			out = append(out, domain.MemoriaLibera{Titolo: titolo, Scadenza: scadenza})
		}
		return out
	}
	return nil
}

func citazioneNotifica(inputs map[string]any, s *config.Settings) []domain.SubEventCandidate {
	var out []domain.SubEventCandidate

	udienza, haveUdienza := dateInput(inputs, "dataUdienzaComparizione")

	// Notifica della citazione: termine a comparire ex art. 163-bis c.p.c.
	if haveUdienza {
		estero := s.NotificaEsteroDefault
		if b, ok := boolInput(inputs, "notificaEstero"); ok {
			estero = b
		}
		giorni := s.TermineComparizioneCitazioneIt
		dove := "in Italia"
		if estero {
			giorni = s.TermineComparizioneCitazioneEst
			dove = "all'estero"
		}
		notifica := makeTermine(
			"Ultimo giorno per notificare la citazione",
			udienza,
			-giorni,
			s,
			fmt.Sprintf("Notifica %s almeno %d giorni prima dell'udienza di comparizione (art. 163-bis c.p.c.)", dove, giorni),
		)
		out = append(out, notifica)
		out = append(out, addReminders("Notifica citazione", notifica.DueAt, s, s.DefaultReminderOffsetsAtto)...)
	}

	// Iscrizione a ruolo attore: 10 gg dalla notifica, alert -3.
	if notifica, ok := dateInput(inputs, "dataNotifica"); ok {
		iscrizione := makeTermine(
			"Termine iscrizione a ruolo attore",
			notifica,
			10,
			s,
			"Iscrizione a ruolo attore entro 10 giorni dalla notifica della citazione (art. 165 c.p.c.)",
		)
		out = append(out, iscrizione)
		out = append(out, addReminders("Iscrizione a ruolo attore", iscrizione.DueAt, s, []int{-3})...)
	}

	// Memorie 171 ter: 40/20/10 gg prima udienza.
	if rif, ok := dateInput(inputs, "dataUdienzaRiferimentoMemorie"); ok {
		out = append(out, addMemorie171ter(rif, s)...)
	} else if haveUdienza {
		out = append(out, addMemorie171ter(udienza, s)...)
	}

	return append(out, addMemorieLibere(inputs, s)...)
}

func citazioneCostituzione(inputs map[string]any, s *config.Settings) []domain.SubEventCandidate {
	var out []domain.SubEventCandidate

	udienza, haveUdienza := dateInput(inputs, "dataUdienzaComparizione")

	// Costituzione convenuto: 70 gg prima udienza, alert -10.
	if haveUdienza {
		costituzione := makeTermine(
			"Termine costituzione convenuto",
			udienza,
			-70,
			s,
			"Costituzione convenuto almeno 70 giorni prima dell'udienza (art. 166 c.p.c.)",
		)
		out = append(out, costituzione)
		out = append(out, addReminders("Costituzione convenuto", costituzione.DueAt, s, []int{-10})...)
	}

	if rif, ok := dateInput(inputs, "dataUdienzaRiferimentoMemorie"); ok {
		out = append(out, addMemorie171ter(rif, s)...)
	} else if haveUdienza {
		out = append(out, addMemorie171ter(udienza, s)...)
	}

	return append(out, addMemorieLibere(inputs, s)...)
}

func opposizioneNotifica(inputs map[string]any, s *config.Settings) []domain.SubEventCandidate {
	var out []domain.SubEventCandidate

	notifica, haveNotifica := dateInput(inputs, "dataNotificaDecretoIngiuntivo")

	if giorni, ok := intInput(inputs, "giorniOpposizione"); haveNotifica && ok && giorni != 0 {
		opposizione := makeTermine(
			"Termine per opposizione",
			notifica,
			giorni,
			s,
			fmt.Sprintf("Opposizione entro %d giorni dalla notifica del decreto", giorni),
		)
		out = append(out, opposizione)
		out = append(out, addReminders("Opposizione", opposizione.DueAt, s, []int{-10, -3})...)
	}

	if giorni, ok := intInput(inputs, "giorniIscrizioneRuolo"); haveNotifica && ok && giorni != 0 {
		iscrizione := makeTermine(
			"Iscrizione a ruolo",
			notifica,
			giorni,
			s,
			fmt.Sprintf("Iscrizione a ruolo entro %d giorni dalla notifica", giorni),
		)
		out = append(out, iscrizione)
		out = append(out, addReminders("Iscrizione a ruolo", iscrizione.DueAt, s, []int{-10, -3})...)
	}

	return append(out, addMemorieLibere(inputs, s)...)
}

func opposizioneCostituzione(inputs map[string]any, s *config.Settings) []domain.SubEventCandidate {
	var out []domain.SubEventCandidate

	udienza, haveUdienza := dateInput(inputs, "dataUdienza")
	if giorni, ok := intInput(inputs, "giorniCostituzione"); haveUdienza && ok && giorni != 0 {
		costituzione := makeTermine(
			"Costituzione opponente",
			udienza,
			-giorni,
			s,
			fmt.Sprintf("Costituzione opponente entro %d giorni prima dell'udienza", giorni),
		)
		out = append(out, costituzione)
		out = append(out, addReminders("Costituzione opponente", costituzione.DueAt, s, []int{-10, -3})...)
	}

	return append(out, addMemorieLibere(inputs, s)...)
}

func tributarioNotifica(inputs map[string]any, s *config.Settings) []domain.SubEventCandidate {
	var out []domain.SubEventCandidate

	if notificaAtto, ok := dateInput(inputs, "dataNotificaAttoImpugnato"); ok {
		ricorso := makeTermine(
			"Ultimo giorno per notificare ricorso tributario",
			notificaAtto,
			60,
			s,
			"Ricorso entro 60 giorni dalla notifica dell'atto impugnato (art. 21 D.Lgs. 546/1992)",
		)
		out = append(out, ricorso)
		out = append(out, addReminders("Ricorso tributario", ricorso.DueAt, s, []int{-15, -7, -1})...)
	}

	if notificaRic, ok := dateInput(inputs, "dataNotificaRicorso"); ok {
		iscrizione := makeTermine(
			"Iscrizione a ruolo ricorrente",
			notificaRic,
			30,
			s,
			"Iscrizione a ruolo entro 30 giorni dalla notifica del ricorso (art. 22 D.Lgs. 546/1992)",
		)
		out = append(out, iscrizione)
		out = append(out, addReminders("Iscrizione a ruolo", iscrizione.DueAt, s, []int{-10, -5, -2})...)
	}

	if udienza, ok := dateInput(inputs, "dataUdienza"); ok {
		out = append(out, addMemorieUdienza(udienza, s, []int{20, 10}, []int{-5, -2})...)
	}

	return append(out, addMemorieLibere(inputs, s)...)
}

func tributarioCostituzione(inputs map[string]any, s *config.Settings) []domain.SubEventCandidate {
	var out []domain.SubEventCandidate

	if notificaRic, ok := dateInput(inputs, "dataNotificaRicorso"); ok {
		costituzione := makeTermine(
			"Costituzione ente opposto",
			notificaRic,
			60,
			s,
			"Costituzione entro 60 giorni dalla notifica del ricorso (art. 23 D.Lgs. 546/1992)",
		)
		out = append(out, costituzione)
		out = append(out, addReminders("Costituzione ente opposto", costituzione.DueAt, s, []int{-7, -1})...)
	}

	if udienza, ok := dateInput(inputs, "dataUdienza"); ok {
		out = append(out, addMemorieUdienza(udienza, s, []int{20, 10}, []int{-5, -2})...)
	}

	return append(out, addMemorieLibere(inputs, s)...)
}

func appelloCivileNotifica(inputs map[string]any, s *config.Settings) []domain.SubEventCandidate {
	var out []domain.SubEventCandidate

	// The short/long term is an explicit election, never inferred.
	switch scelta, _ := strInput(inputs, "sceltaTermineImpugnazione"); scelta {
	case domain.TermineBreve:
		if notifica, ok := dateInput(inputs, "dataNotificaSentenza"); ok {
			termine := makeTermine(
				"Ultimo giorno per notificare appello (termine breve)",
				notifica,
				30,
				s,
				"Termine breve per appello: 30 giorni dalla notificazione della sentenza (art. 325 c.p.c.)",
			)
			out = append(out, termine)
			out = append(out, addReminders("Appello civile", termine.DueAt, s, []int{-20, -7, -3})...)
		}
	case domain.TermineLungo:
		if pubb, ok := dateInput(inputs, "dataPubblicazioneSentenza"); ok {
			termine := makeTermine(
				"Ultimo giorno per notificare appello (termine lungo)",
				pubb,
				180,
				s,
				"Termine lungo: 6 mesi dalla pubblicazione (art. 327 c.p.c.)",
			)
			out = append(out, termine)
			out = append(out, addReminders("Appello civile", termine.DueAt, s, []int{-20, -7, -3})...)
		}
	}

	if notificaApp, ok := dateInput(inputs, "dataNotificaAppello"); ok {
		iscrizione := makeTermine(
			"Termine iscrizione a ruolo appellante",
			notificaApp,
			10,
			s,
			"Iscrizione a ruolo entro 10 giorni dalla notifica dell'appello (art. 347 c.p.c.)",
		)
		out = append(out, iscrizione)
		out = append(out, addReminders("Iscrizione a ruolo appellante", iscrizione.DueAt, s, []int{-3})...)
	}

	return append(out, addMemorieLibere(inputs, s)...)
}

func appelloCivileCostituzione(inputs map[string]any, s *config.Settings) []domain.SubEventCandidate {
	var out []domain.SubEventCandidate

	if udienza, ok := dateInput(inputs, "dataUdienza"); ok {
		costituzione := makeTermine(
			"Termine costituzione appellato",
			udienza,
			-20,
			s,
			"Costituzione appellato almeno 20 giorni prima dell'udienza (art. 347 c.p.c.)",
		)
		out = append(out, costituzione)
		out = append(out, addReminders("Costituzione appellato", costituzione.DueAt, s, []int{-10, -5})...)
	}

	return append(out, addMemorieLibere(inputs, s)...)
}

func appelloTributarioNotifica(inputs map[string]any, s *config.Settings) []domain.SubEventCandidate {
	var out []domain.SubEventCandidate

	switch scelta, _ := strInput(inputs, "sceltaTermineImpugnazione"); scelta {
	case domain.TermineBreve:
		if notifica, ok := dateInput(inputs, "dataNotificaSentenzaTributaria"); ok {
			termine := makeTermine(
				"Ultimo giorno per notificare appello tributario (termine breve)",
				notifica,
				60,
				s,
				"Appello tributario: 60 giorni dalla notificazione della sentenza (termine breve)",
			)
			out = append(out, termine)
			out = append(out, addReminders("Appello tributario", termine.DueAt, s, []int{-20, -7, -1})...)
		}
	case domain.TermineLungo:
		if pubb, ok := dateInput(inputs, "dataPubblicazioneSentenzaTributaria"); ok {
			termine := makeTermine(
				"Ultimo giorno appello tributario (termine lungo)",
				pubb,
				180,
				s,
				"In assenza di notifica: 6 mesi dalla pubblicazione (termine lungo ex art. 327 c.p.c.)",
			)
			out = append(out, termine)
			out = append(out, addReminders("Appello tributario", termine.DueAt, s, []int{-20, -7, -1})...)
		}
	}

	if notificaApp, ok := dateInput(inputs, "dataNotificaAppello"); ok {
		iscrizione := makeTermine(
			"Iscrizione a ruolo appellante",
			notificaApp,
			30,
			s,
			"Iscrizione a ruolo entro 30 giorni dalla notifica dell'appello",
		)
		out = append(out, iscrizione)
		out = append(out, addReminders("Iscrizione a ruolo", iscrizione.DueAt, s, []int{-10, -5, -2})...)
	}

	if udienza, ok := dateInput(inputs, "dataUdienza"); ok {
		out = append(out, addMemorieUdienza(udienza, s, []int{20, 10}, []int{-5, -2})...)
	}

	return append(out, addMemorieLibere(inputs, s)...)
}

func appelloTributarioCostituzione(inputs map[string]any, s *config.Settings) []domain.SubEventCandidate {
	var out []domain.SubEventCandidate

	if notificaRic, ok := dateInput(inputs, "dataNotificaRicorso"); ok {
		costituzione := makeTermine(
			"Costituzione appellato",
			notificaRic,
			60,
			s,
			"Appellato: controdeduzioni/costituzione entro 60 giorni dalla notifica dell'appello",
		)
		out = append(out, costituzione)
		out = append(out, addReminders("Costituzione appellato", costituzione.DueAt, s, []int{-7, -1})...)
	}

	if udienza, ok := dateInput(inputs, "dataUdienza"); ok {
		out = append(out, addMemorieUdienza(udienza, s, []int{20, 10}, []int{-5, -2})...)
	}

	return append(out, addMemorieLibere(inputs, s)...)
}

func cassazioneNotifica(inputs map[string]any, s *config.Settings) []domain.SubEventCandidate {
	var out []domain.SubEventCandidate

	switch scelta, _ := strInput(inputs, "sceltaTermineImpugnazione"); scelta {
	case domain.TermineBreve:
		if notifica, ok := dateInput(inputs, "dataNotificaSentenza"); ok {
			termine := makeTermine(
				"Ultimo giorno per notificare ricorso per cassazione",
				notifica,
				60,
				s,
				"Ricorso per cassazione: termine breve 60 giorni dalla notificazione (art. 325 c.p.c.)",
			)
			out = append(out, termine)
			out = append(out, addReminders("Ricorso Cassazione", termine.DueAt, s, []int{-20, -5, -2})...)
		}
	case domain.TermineLungo:
		if pubb, ok := dateInput(inputs, "dataPubblicazioneSentenza"); ok {
			termine := makeTermine(
				"Ultimo giorno ricorso per cassazione (termine lungo)",
				pubb,
				180,
				s,
				"Termine lungo: 6 mesi dalla pubblicazione (art. 327 c.p.c.)",
			)
			out = append(out, termine)
			out = append(out, addReminders("Ricorso Cassazione", termine.DueAt, s, []int{-20, -5, -2})...)
		}
	}

	if notificaRic, ok := dateInput(inputs, "dataNotificaRicorso"); ok {
		iscrizione := makeTermine(
			"Iscrizione a ruolo ricorrente (Cassazione)",
			notificaRic,
			20,
			s,
			"Deposito del ricorso entro 20 giorni dall'ultima notificazione (art. 369 c.p.c.)",
		)
		out = append(out, iscrizione)
		out = append(out, addReminders("Iscrizione a ruolo Cassazione", iscrizione.DueAt, s, []int{-10, -5, -2})...)
	}

	if udienza, ok := dateInput(inputs, "dataUdienza"); ok {
		out = append(out, addMemorieUdienza(udienza, s, []int{10}, []int{-10, -5})...)
	}

	return append(out, addMemorieLibere(inputs, s)...)
}

func cassazioneCostituzione(inputs map[string]any, s *config.Settings) []domain.SubEventCandidate {
	var out []domain.SubEventCandidate

	if notificaRic, ok := dateInput(inputs, "dataNotificaRicorso"); ok {
		costituzione := makeTermine(
			"Costituzione controricorrente",
			notificaRic,
			40,
			s,
			"Costituzione entro 40 giorni dalla notifica del ricorso (art. 370 c.p.c.)",
		)
		out = append(out, costituzione)
		out = append(out, addReminders("Costituzione controricorrente", costituzione.DueAt, s, []int{-20, -10, -5})...)
	}

	if udienza, ok := dateInput(inputs, "dataUdienza"); ok {
		out = append(out, addMemorieUdienza(udienza, s, []int{10}, []int{-10, -5})...)
	}

	return append(out, addMemorieLibere(inputs, s)...)
}
