package command

// Phrase binds a spoken form to an action. Order inside a table matters: on
// a similarity tie the earlier phrase wins, so tables keep a stable, curated
// order.
type Phrase struct {
	Text   string
	Action Action
	Arg    string
}

// localeTables holds the command vocabulary per locale. Every locale covers
// the same action set so switching languages never loses functionality.
var localeTables = map[string][]Phrase{
	"en-US": {
		{Text: "go home", Action: ActionNavigateHome},
		{Text: "open vault", Action: ActionNavigateVault},
		{Text: "go back", Action: ActionNavigateBack},
		{Text: "next message", Action: ActionNavigateNext},
		{Text: "previous message", Action: ActionNavigatePrevious},
		{Text: "start recording", Action: ActionCaptureStart},
		{Text: "stop recording", Action: ActionCaptureStop},
		{Text: "pause recording", Action: ActionCapturePause},
		{Text: "resume recording", Action: ActionCaptureResume},
		{Text: "take photo", Action: ActionCapturePhoto},
		{Text: "save message", Action: ActionVaultSave},
		{Text: "discard message", Action: ActionVaultDiscard},
		{Text: "delete message", Action: ActionVaultDelete},
		{Text: "play message", Action: ActionPlaybackPlay},
		{Text: "pause playback", Action: ActionPlaybackPause},
		{Text: "stop playback", Action: ActionPlaybackStop},
		{Text: "switch to english", Action: ActionLocaleChange, Arg: "en-US"},
		{Text: "switch to spanish", Action: ActionLocaleChange, Arg: "es-ES"},
		{Text: "switch to french", Action: ActionLocaleChange, Arg: "fr-FR"},
		{Text: "switch to german", Action: ActionLocaleChange, Arg: "de-DE"},
	},
	"es-ES": {
		{Text: "ir a inicio", Action: ActionNavigateHome},
		{Text: "abrir bóveda", Action: ActionNavigateVault},
		{Text: "volver", Action: ActionNavigateBack},
		{Text: "siguiente mensaje", Action: ActionNavigateNext},
		{Text: "mensaje anterior", Action: ActionNavigatePrevious},
		{Text: "iniciar grabación", Action: ActionCaptureStart},
		{Text: "detener grabación", Action: ActionCaptureStop},
		{Text: "pausar grabación", Action: ActionCapturePause},
		{Text: "reanudar grabación", Action: ActionCaptureResume},
		{Text: "tomar foto", Action: ActionCapturePhoto},
		{Text: "guardar mensaje", Action: ActionVaultSave},
		{Text: "descartar mensaje", Action: ActionVaultDiscard},
		{Text: "eliminar mensaje", Action: ActionVaultDelete},
		{Text: "reproducir mensaje", Action: ActionPlaybackPlay},
		{Text: "pausar reproducción", Action: ActionPlaybackPause},
		{Text: "detener reproducción", Action: ActionPlaybackStop},
		{Text: "cambiar a inglés", Action: ActionLocaleChange, Arg: "en-US"},
		{Text: "cambiar a español", Action: ActionLocaleChange, Arg: "es-ES"},
		{Text: "cambiar a francés", Action: ActionLocaleChange, Arg: "fr-FR"},
		{Text: "cambiar a alemán", Action: ActionLocaleChange, Arg: "de-DE"},
	},
	"fr-FR": {
		{Text: "aller à l'accueil", Action: ActionNavigateHome},
		{Text: "ouvrir le coffre", Action: ActionNavigateVault},
		{Text: "retour", Action: ActionNavigateBack},
		{Text: "message suivant", Action: ActionNavigateNext},
		{Text: "message précédent", Action: ActionNavigatePrevious},
		{Text: "commencer l'enregistrement", Action: ActionCaptureStart},
		{Text: "arrêter l'enregistrement", Action: ActionCaptureStop},
		{Text: "suspendre l'enregistrement", Action: ActionCapturePause},
		{Text: "reprendre l'enregistrement", Action: ActionCaptureResume},
		{Text: "prendre une photo", Action: ActionCapturePhoto},
		{Text: "sauvegarder le message", Action: ActionVaultSave},
		{Text: "abandonner le message", Action: ActionVaultDiscard},
		{Text: "supprimer le message", Action: ActionVaultDelete},
		{Text: "lire le message", Action: ActionPlaybackPlay},
		{Text: "suspendre la lecture", Action: ActionPlaybackPause},
		{Text: "arrêter la lecture", Action: ActionPlaybackStop},
		{Text: "passer en anglais", Action: ActionLocaleChange, Arg: "en-US"},
		{Text: "passer en espagnol", Action: ActionLocaleChange, Arg: "es-ES"},
		{Text: "passer en français", Action: ActionLocaleChange, Arg: "fr-FR"},
		{Text: "passer en allemand", Action: ActionLocaleChange, Arg: "de-DE"},
	},
	"de-DE": {
		{Text: "zur startseite", Action: ActionNavigateHome},
		{Text: "tresor öffnen", Action: ActionNavigateVault},
		{Text: "zurück", Action: ActionNavigateBack},
		{Text: "nächste nachricht", Action: ActionNavigateNext},
		{Text: "vorherige nachricht", Action: ActionNavigatePrevious},
		{Text: "aufnahme starten", Action: ActionCaptureStart},
		{Text: "aufnahme stoppen", Action: ActionCaptureStop},
		{Text: "aufnahme pausieren", Action: ActionCapturePause},
		{Text: "aufnahme fortsetzen", Action: ActionCaptureResume},
		{Text: "foto aufnehmen", Action: ActionCapturePhoto},
		{Text: "nachricht speichern", Action: ActionVaultSave},
		{Text: "nachricht verwerfen", Action: ActionVaultDiscard},
		{Text: "nachricht löschen", Action: ActionVaultDelete},
		{Text: "nachricht abspielen", Action: ActionPlaybackPlay},
		{Text: "wiedergabe pausieren", Action: ActionPlaybackPause},
		{Text: "wiedergabe stoppen", Action: ActionPlaybackStop},
		{Text: "zu englisch wechseln", Action: ActionLocaleChange, Arg: "en-US"},
		{Text: "zu spanisch wechseln", Action: ActionLocaleChange, Arg: "es-ES"},
		{Text: "zu französisch wechseln", Action: ActionLocaleChange, Arg: "fr-FR"},
		{Text: "zu deutsch wechseln", Action: ActionLocaleChange, Arg: "de-DE"},
	},
}

// Locales returns the supported locale codes in stable order.
func Locales() []string {
	return []string{"en-US", "es-ES", "fr-FR", "de-DE"}
}
