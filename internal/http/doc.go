// Package http provides HTTP handlers and middleware for the eventhub API.
//
// The router exposes the following endpoints:
//   - POST /api/auth/verify: validates {"token"} and returns the verified
//     profile {"uid","email","displayName","photoURL","provider"}.
//   - GET /api/auth/profile: returns {"uid","email","name"} of the bearer.
//   - GET /api/events, GET /api/events/{id}: public listings. The list accepts
//     upcoming=true or past=true.
//   - POST /api/events, PUT /api/events/{id}, DELETE /api/events/{id}:
//     organizer actions exchanging the `eventDTO` payload defined in
//     event_handler.go.
//   - POST /api/events/{id}/attend, DELETE /api/events/{id}/attend: attendance.
//   - GET /api/events/my/organized, GET /api/events/my/participating.
//   - GET /api/events/{id}/calendar.ics: iCalendar export of one event.
//   - GET, POST, DELETE /api/notifications, PUT /api/notifications/read-all,
//     PUT /api/notifications/{id}/read, DELETE /api/notifications/{id}: the
//     caller's inbox.
//   - GET /healthz and GET /metrics.
//
// Every response carries "success". Failures add a Spanish "error" message and,
// for validation failures, a per-field "errors" object.
package http
