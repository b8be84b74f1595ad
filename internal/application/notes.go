package application

import "fmt"

func eventNote(event Event, kind, title, message string) Note {
	id := event.ID
	eventTitle := event.Title
	return Note{
		Type:       kind,
		Title:      title,
		Message:    message,
		EventID:    &id,
		EventTitle: &eventTitle,
	}
}

// EventCreatedNote is sent to the organizer of a new event.
func EventCreatedNote(event Event) Note {
	return eventNote(event, NotificationEventCreated, "✨ Evento Creado",
		fmt.Sprintf("Tu evento \"%s\" ha sido creado exitosamente", event.Title))
}

// EventChangedNote is sent to participants when the organizer edits an event.
func EventChangedNote(event Event) Note {
	return eventNote(event, NotificationEventChanged, "⚠️ Evento Modificado",
		fmt.Sprintf("El evento \"%s\" al que asistes ha sido modificado", event.Title))
}

// EventUpdatedNote confirms an edit to the organizer.
func EventUpdatedNote(event Event) Note {
	return eventNote(event, NotificationEventUpdated, "📝 Evento Actualizado",
		fmt.Sprintf("El evento \"%s\" ha sido actualizado", event.Title))
}

// EventCancelledNote tells participants that an event was deleted.
func EventCancelledNote(event Event) Note {
	return eventNote(event, NotificationEventCancelled, "❌ Evento Cancelado",
		fmt.Sprintf("El evento \"%s\" ha sido cancelado", event.Title))
}

// AttendanceConfirmedNote is sent to a user who confirmed attendance.
func AttendanceConfirmedNote(event Event) Note {
	return eventNote(event, NotificationAttendanceConfirmed, "✓ Asistencia Confirmada",
		fmt.Sprintf("Has confirmado tu asistencia a \"%s\"", event.Title))
}

// NewAttendeeNote tells the organizer that someone confirmed attendance.
func NewAttendeeNote(event Event, attendeeEmail string) Note {
	return eventNote(event, NotificationNewAttendee, "👥 Nueva Confirmación",
		fmt.Sprintf("%s confirmó asistencia a \"%s\"", attendeeEmail, event.Title))
}
