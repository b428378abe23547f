// Package http exposes the booking services as a JSON API.
//
// The router serves:
//   - GET/POST /rooms, GET/PUT/DELETE /rooms/{id} and POST /rooms/seed for the
//     room catalog (roomDTO in room_handler.go).
//   - GET /rooms/{id}/availability?date=YYYY-MM-DD renders the 48 slot day grid
//     together with the day's bookings. Adding start=HH:MM&end=HH:MM also
//     validates that pick and reports it under "pick".
//   - GET/POST /members (?search=) and GET/PUT/DELETE /members/{id}. Mail
//     secrets are write only.
//   - GET/POST /meetings (?room_id=&date=&status=), GET/PUT /meetings/{id},
//     DELETE /meetings/{id} which cancels, and POST /meetings/{id}/invitations.
//   - GET/POST /check-ins (?meeting_id=).
//   - GET /healthz.
//
// Times are accepted as RFC3339 or as YYYY-MM-DDTHH:MM in the service location
// and always rendered as RFC3339 in that location. Errors use errorResponse:
// 400 for malformed bodies or ids, 422 with per-field messages for validation
// failures, 409 for booking conflicts and duplicates, 403 when a
// non-participant checks in, 404 for missing records.
package http
