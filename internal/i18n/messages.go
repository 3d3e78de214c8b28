package i18n

var catalog = map[Language]map[string]string{
	English: {
		"common.generating":   "Generating...",
		"common.processing":   "Processing...",
		"common.converting":   "Converting...",
		"common.loading":      "Loading...",
		"common.cost":         "Cost: {0} credits",
		"common.credits":      "credits",
		"common.no_preview":   "No preview available for this voice",
		"common.previewing":   "Playing preview of {0}",
		"common.recording":    "Recording... press Enter to stop",
		"common.saved_to":     "Saved to {0}",
		"common.max_size":     "max 10MB",
		"common.select_voice": "Select Voice",

		"nav.text_to_speech":   "Text-to-Speech",
		"nav.speech_to_speech": "Speech-to-Speech",
		"nav.sound_fx":         "Sound FX",
		"nav.voice_isolator":   "Voice Isolator",

		"toast.fill_required":       "Please fill in all required fields",
		"toast.api_key_valid":       "API key is valid",
		"toast.api_key_invalid":     "Invalid API key",
		"toast.api_key_unconfirmed": "Could not reach ElevenLabs to confirm the API key",
		"toast.api_key_missing":     "No API key given (use --api-key or ELEVENLABS_API_KEY)",
		"toast.voices_failed":       "Failed to fetch voices",
		"toast.voice_unavailable":   "Previously selected voice is no longer available",
		"toast.audio_generated":     "Audio generated successfully",
		"toast.generation_failed":   "Failed to generate audio",
		"toast.conversion_success":  "Audio converted successfully",
		"toast.conversion_failed":   "Failed to convert audio",
		"toast.isolation_success":   "Voice isolated successfully",
		"toast.isolation_failed":    "Failed to isolate voice",
		"toast.sfx_success":         "Generated {0} sound effect variations",
		"toast.sfx_partial":         "{0} of {1} variations failed",
		"toast.sfx_failed":          "Failed to generate sound effects",
		"toast.file_too_large":      "File is too large (max {0})",
		"toast.invalid_file":        "Please upload an audio file",
		"toast.cleared":             "Cleared {0}",
		"toast.history_cleared":     "History cleared",
		"toast.history_removed":     "Removed {0} from history",
		"toast.language_changed":    "Language set to {0}",
		"toast.recording_failed":    "Recording failed",
		"toast.no_recorder":         "No microphone capture tool found",

		"history.empty":   "No generations yet",
		"history.heading": "Generation history ({0})",

		"lang.current": "Language: {0}",
		"lang.en":      "English",
		"lang.de":      "German",
	},
	German: {
		"common.generating":   "Wird generiert...",
		"common.processing":   "Wird verarbeitet...",
		"common.converting":   "Wird konvertiert...",
		"common.loading":      "Wird geladen...",
		"common.cost":         "Kosten: {0} Credits",
		"common.credits":      "Credits",
		"common.no_preview":   "Für diese Stimme ist keine Vorschau verfügbar",
		"common.previewing":   "Vorschau von {0} wird abgespielt",
		"common.recording":    "Aufnahme läuft... Enter zum Beenden",
		"common.saved_to":     "Gespeichert unter {0}",
		"common.max_size":     "max. 10MB",
		"common.select_voice": "Stimme auswählen",

		"nav.text_to_speech":   "Text-zu-Sprache",
		"nav.speech_to_speech": "Sprache-zu-Sprache",
		"nav.sound_fx":         "Soundeffekte",
		"nav.voice_isolator":   "Stimmen-Isolator",

		"toast.fill_required":       "Bitte füllen Sie alle Pflichtfelder aus",
		"toast.api_key_valid":       "API-Schlüssel ist gültig",
		"toast.api_key_invalid":     "Ungültiger API-Schlüssel",
		"toast.api_key_unconfirmed": "ElevenLabs ist nicht erreichbar, der API-Schlüssel konnte nicht geprüft werden",
		"toast.api_key_missing":     "Kein API-Schlüssel angegeben (--api-key oder ELEVENLABS_API_KEY)",
		"toast.voices_failed":       "Stimmen konnten nicht geladen werden",
		"toast.voice_unavailable":   "Die zuvor ausgewählte Stimme ist nicht mehr verfügbar",
		"toast.audio_generated":     "Audio erfolgreich generiert",
		"toast.generation_failed":   "Audio konnte nicht generiert werden",
		"toast.conversion_success":  "Audio erfolgreich konvertiert",
		"toast.conversion_failed":   "Audio konnte nicht konvertiert werden",
		"toast.isolation_success":   "Stimme erfolgreich isoliert",
		"toast.isolation_failed":    "Stimme konnte nicht isoliert werden",
		"toast.sfx_success":         "{0} Soundeffekt-Varianten generiert",
		"toast.sfx_partial":         "{0} von {1} Varianten fehlgeschlagen",
		"toast.sfx_failed":          "Soundeffekte konnten nicht generiert werden",
		"toast.file_too_large":      "Datei ist zu groß (max. {0})",
		"toast.invalid_file":        "Bitte laden Sie eine Audiodatei hoch",
		"toast.cleared":             "{0} zurückgesetzt",
		"toast.history_cleared":     "Verlauf gelöscht",
		"toast.history_removed":     "{0} aus dem Verlauf entfernt",
		"toast.language_changed":    "Sprache auf {0} gesetzt",
		"toast.recording_failed":    "Aufnahme fehlgeschlagen",

		"history.empty":   "Noch keine Generierungen",
		"history.heading": "Verlauf ({0})",

		"lang.current": "Sprache: {0}",
		"lang.en":      "Englisch",
		"lang.de":      "Deutsch",
	},
}
