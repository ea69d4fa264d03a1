// AreaNode - Sharded Game World Cache and Dispatch Node
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/areanode

package node

// ResultCode is the closed outcome enumeration written as the first two
// bytes of every response frame.
type ResultCode uint16

const (
	Success             ResultCode = 0
	ServerError         ResultCode = 1
	RetryLater          ResultCode = 2
	InvalidRequestType  ResultCode = 3
	InvalidParameters   ResultCode = 4
	InvalidServer       ResultCode = 5
	StringNotUTF8       ResultCode = 6
	StringTooLong       ResultCode = 7
	OutOfBounds         ResultCode = 8
	NotInLOS            ResultCode = 9
	LocationOccupied    ResultCode = 10
	InvalidLocation     ResultCode = 11
	NoResponse          ResultCode = 12
	NotAuthenticated    ResultCode = 13
)

func (r ResultCode) String() string {
	switch r {
	case Success:
		return "success"
	case ServerError:
		return "server_error"
	case RetryLater:
		return "retry_later"
	case InvalidRequestType:
		return "invalid_request_type"
	case InvalidParameters:
		return "invalid_parameters"
	case InvalidServer:
		return "invalid_server"
	case StringNotUTF8:
		return "string_not_utf8"
	case StringTooLong:
		return "string_too_long"
	case OutOfBounds:
		return "out_of_bounds"
	case NotInLOS:
		return "not_in_los"
	case LocationOccupied:
		return "location_occupied"
	case InvalidLocation:
		return "invalid_location"
	case NoResponse:
		return "no_response"
	case NotAuthenticated:
		return "not_authenticated"
	default:
		return "unknown"
	}
}
