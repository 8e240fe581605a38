package testutil

import "livery/internal/dispatch"

// RecordWithRoute builds a minimal success record whose status column holds
// route.
func RecordWithRoute(route string) *dispatch.Record {
	return dispatch.NewRecord(dispatch.Envelope{
		JHeader: dispatch.Header{ActionCode: dispatch.CodeOK, SysVersion: "4.2"},
		JMetaData: dispatch.MetaData{Headings: [][]string{
			{"Status", "Status"},
			{"RideNo", "Ride #"},
			{"PickupTime", "Pickup"},
		}},
		JData: [][]string{{route, "R1", "2025-01-01 10:00"}},
	})
}

// FailureRecord builds a record with the given error code and message.
func FailureRecord(code int, message string) *dispatch.Record {
	return dispatch.NewRecord(dispatch.Envelope{
		JHeader: dispatch.Header{ActionCode: code, Message: message},
	})
}
