package dispatch

// Screen identifies the lifecycle screen responsible for a route.
type Screen int

const (
	ScreenJobOffer Screen = iota
	ScreenEnRoute
	ScreenOnScene
	ScreenLoad
	ScreenCompleteJob
	ScreenUnload
	ScreenRideRejected
)

func (s Screen) String() string {
	switch s {
	case ScreenJobOffer:
		return "JobOffer"
	case ScreenEnRoute:
		return "EnRoute"
	case ScreenOnScene:
		return "OnScene"
	case ScreenLoad:
		return "Load"
	case ScreenCompleteJob:
		return "CompleteJob"
	case ScreenUnload:
		return "Unload"
	case ScreenRideRejected:
		return "RideRejected"
	default:
		return "Unknown"
	}
}

// Terminal reports whether the screen ends the lifecycle: no further ride
// actions, only session-level checks.
func (s Screen) Terminal() bool {
	return s == ScreenUnload || s == ScreenRideRejected
}

// Route status strings as the backend sends them. "On Call", "On Location"
// and "P.O.B" are legacy synonyms still produced by older dispatchers.
const (
	RouteInitial      = "/"
	RouteJobOffer     = "Job Offer"
	RouteJobAccepted  = "Job Accepted"
	RouteOnCall       = "On Call"
	RouteOnScene      = "On-scene"
	RouteOnLocation   = "On Location"
	RouteLoad         = "Load"
	RoutePOB          = "P.O.B"
	RouteUnload       = "Unload"
	RouteCompleted    = "Completed"
	RouteRideRejected = "Ride Rejected"
)

// ResolveScreen maps a route status string to its screen. Matching is exact
// and case-sensitive; anything unrecognized (including "") falls back to the
// offer screen. The resolver only renders — transitions happen when a
// lifecycle response changes the stored route, never here.
func ResolveScreen(route string) Screen {
	switch route {
	case RouteJobOffer, RouteInitial, "":
		return ScreenJobOffer
	case RouteJobAccepted, RouteOnCall:
		return ScreenEnRoute
	case RouteOnScene, RouteOnLocation:
		return ScreenOnScene
	case RouteLoad, RoutePOB:
		return ScreenLoad
	case RouteUnload:
		return ScreenCompleteJob
	case RouteCompleted:
		// The ride is done; the unload screen waits for the next dispatch.
		return ScreenUnload
	case RouteRideRejected:
		return ScreenRideRejected
	default:
		return ScreenJobOffer
	}
}
