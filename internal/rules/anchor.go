package rules

import (
	"time"

	"github.com/bmarone2002/legalcalendar/internal/domain"
)

// anchorKeys lists, per act/mode pair, the dated inputs that can anchor the
// event on a calendar view.
var anchorKeys = map[domain.ActionType]map[domain.ActionMode][]string{
	domain.ActCitazione: {
		domain.ModeDaNotificare: {"dataNotifica", "dataUdienzaComparizione", "dataUdienzaRiferimentoMemorie"},
		domain.ModeCostituzione: {"dataUdienzaComparizione", "dataUdienzaRiferimentoMemorie"},
	},
	domain.ActRicorsoOpposizione: {
		domain.ModeDaNotificare: {"dataNotificaDecretoIngiuntivo"},
		domain.ModeCostituzione: {"dataUdienza"},
	},
	domain.ActRicorsoTributario: {
		domain.ModeDaNotificare: {"dataNotificaAttoImpugnato", "dataNotificaRicorso", "dataUdienza"},
		domain.ModeCostituzione: {"dataNotificaRicorso", "dataUdienza"},
	},
	domain.ActAppelloCivile: {
		domain.ModeDaNotificare: {"dataNotificaSentenza", "dataPubblicazioneSentenza", "dataNotificaAppello"},
		domain.ModeCostituzione: {"dataUdienza"},
	},
	domain.ActAppelloTributario: {
		domain.ModeDaNotificare: {"dataNotificaSentenzaTributaria", "dataPubblicazioneSentenzaTributaria", "dataNotificaAppello", "dataUdienza"},
		domain.ModeCostituzione: {"dataNotificaRicorso", "dataUdienza"},
	},
	domain.ActRicorsoCassazione: {
		domain.ModeDaNotificare: {"dataNotificaSentenza", "dataPubblicazioneSentenza", "dataNotificaRicorso", "dataUdienza"},
		domain.ModeCostituzione: {"dataNotificaRicorso", "dataUdienza"},
	},
}

// AnchorWindow returns the earliest valid anchor date among the pair's dated
// inputs, with a one-hour span for calendar display. ok is false when no
// anchor input parses.
func AnchorWindow(actType domain.ActionType, actMode domain.ActionMode, inputs map[string]any) (start, end time.Time, ok bool) {
	keys := anchorKeys[actType][actMode]
	for _, key := range keys {
		d, found := dateInput(inputs, key)
		if !found {
			continue
		}
		if !ok || d.Before(start) {
			start, ok = d, true
		}
	}
	if !ok {
		return time.Time{}, time.Time{}, false
	}
	return start, start.Add(time.Hour), true
}
