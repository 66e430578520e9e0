package http

import (
	"math"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/voltrip/internal/core/domain"
	"github.com/samirrijal/voltrip/internal/core/usecases"
)

type endpointRequest struct {
	PlaceID string `json:"place_id"`
}

type toggleRequest struct {
	Lat *float64 `json:"lat"`
	Lng *float64 `json:"lng"`
}

// ToggleResponse reports the transition and the resulting session.
type ToggleResponse struct {
	Charger domain.Charger         `json:"charger"`
	From    domain.ChargerState    `json:"from"`
	To      domain.ChargerState    `json:"to"`
	Session domain.SessionSnapshot `json:"session"`
}

func lookupSession(c *fiber.Ctx, deps *Dependencies) (*usecases.RouteSession, error) {
	return deps.Sessions.Get(c.Params("id"))
}

// CreateSessionHandler starts a trip session.
func CreateSessionHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		s := deps.Sessions.Create()
		LoggerFromCtx(c.UserContext()).Info("session created", "session_id", s.ID())
		c.Location("/v1/sessions/" + s.ID())
		return c.Status(fiber.StatusCreated).JSON(s.Snapshot())
	}
}

// GetSessionHandler returns the session snapshot.
func GetSessionHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		s, err := lookupSession(c, deps)
		if err != nil {
			return errDomain(c, err)
		}
		return c.JSON(s.Snapshot())
	}
}

// DeleteSessionHandler forgets a session.
func DeleteSessionHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := deps.Sessions.Delete(c.Params("id")); err != nil {
			return errDomain(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// SetEndpointHandler sets the origin or destination. Routing failures after
// the change are reported as notices in the returned snapshot.
func SetEndpointHandler(deps *Dependencies, destination bool) fiber.Handler {
	return func(c *fiber.Ctx) error {
		s, err := lookupSession(c, deps)
		if err != nil {
			return errDomain(c, err)
		}

		var req endpointRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		req.PlaceID = strings.TrimSpace(req.PlaceID)
		if req.PlaceID == "" {
			return errBadRequest(c, "place_id is required")
		}
		if len(req.PlaceID) > 512 {
			return errBadRequest(c, "place_id too long (max 512 characters)")
		}

		ctx := c.UserContext()
		if destination {
			err = s.SetDestination(ctx, req.PlaceID)
		} else {
			err = s.SetOrigin(ctx, req.PlaceID)
		}
		if err != nil && !isRoutingError(err) {
			return errDomain(c, err)
		}
		if err != nil {
			LoggerFromCtx(ctx).Warn("route after endpoint change failed", "session_id", s.ID(), "error", err)
		}
		return c.JSON(s.Snapshot())
	}
}

// RouteHandler recomputes routes. ?discover=false skips charger discovery.
func RouteHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		s, err := lookupSession(c, deps)
		if err != nil {
			return errDomain(c, err)
		}
		if err := s.Route(c.UserContext(), c.QueryBool("discover", true)); err != nil {
			return errDomain(c, err)
		}
		return c.JSON(s.Snapshot())
	}
}

// ToggleHandler flips the charger at {lat,lng} between available and selected.
func ToggleHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		s, err := lookupSession(c, deps)
		if err != nil {
			return errDomain(c, err)
		}

		var req toggleRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		if req.Lat == nil || req.Lng == nil {
			return errBadRequest(c, "lat and lng are required")
		}
		pos := domain.GeoPoint{Lat: *req.Lat, Lng: *req.Lng}
		if math.Abs(pos.Lat) > 90 || math.Abs(pos.Lng) > 180 {
			return errBadRequest(c, "lat must be within ±90 and lng within ±180")
		}

		ctx := c.UserContext()
		tr, err := s.Toggle(ctx, pos)
		if err != nil && !isRoutingError(err) {
			return errDomain(c, err)
		}
		if err != nil {
			LoggerFromCtx(ctx).Warn("route after toggle failed", "session_id", s.ID(), "error", err)
		}

		return c.JSON(ToggleResponse{
			Charger: tr.Charger,
			From:    tr.From,
			To:      tr.To,
			Session: s.Snapshot(),
		})
	}
}

// ListChargersHandler pages through the session's chargers.
// ?state=available|selected filters; the default lists both, available first.
func ListChargersHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		s, err := lookupSession(c, deps)
		if err != nil {
			return errDomain(c, err)
		}

		type chargerItem struct {
			domain.Charger
			State domain.ChargerState `json:"state"`
		}

		snap := s.Snapshot()
		state := c.Query("state")
		var items []chargerItem
		switch state {
		case "", string(domain.ChargerAvailable), string(domain.ChargerSelected):
		default:
			return errBadRequest(c, "state must be available or selected")
		}
		if state != string(domain.ChargerSelected) {
			for _, ch := range snap.Available {
				items = append(items, chargerItem{ch, domain.ChargerAvailable})
			}
		}
		if state != string(domain.ChargerAvailable) {
			for _, ch := range snap.Selected {
				items = append(items, chargerItem{ch, domain.ChargerSelected})
			}
		}

		offset, limit := parsePagination(c, 50, 200)
		start, end := pageBounds(len(items), offset, limit)
		pg := Pagination{Offset: offset, Limit: limit, Total: len(items)}

		extra := ""
		if state != "" {
			extra = "state=" + state
		}
		SetLinkHeaders(c, pg, extra)
		page := items[start:end]
		if page == nil {
			page = []chargerItem{}
		}
		return c.JSON(PaginatedResponse{Data: page, Pagination: pg})
	}
}

// NoticesHandler returns the recent notices of a session, oldest first.
func NoticesHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		s, err := lookupSession(c, deps)
		if err != nil {
			return errDomain(c, err)
		}
		return c.JSON(s.Notices())
	}
}

// RequestSurveyHandler queues a corridor survey.
func RequestSurveyHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if deps.Surveys == nil {
			return errUnavailable(c, "surveys are not available")
		}
		var req domain.SurveyRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		if req.OriginPlaceID == "" || req.DestinationPlaceID == "" {
			return errBadRequest(c, "origin_place_id and destination_place_id are required")
		}
		if err := deps.Surveys.RequestSurvey(c.UserContext(), req); err != nil {
			LoggerFromCtx(c.UserContext()).Error("queue survey", "error", err)
			return errUnavailable(c, "could not queue survey")
		}
		return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"status": "queued"})
	}
}
