package handler

import (
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/puzzle-market/internal/apperror"
	"github.com/sakif/puzzle-market/internal/auth"
	"github.com/sakif/puzzle-market/internal/model"
	"github.com/sakif/puzzle-market/internal/query"
	"github.com/sakif/puzzle-market/internal/service"
)

// maxAdvertBody leaves room for a full-size picture encoded as base64 plus
// the rest of the advert.
const maxAdvertBody = model.MaxPictureBytes*4/3 + 64<<10

// AdvertHandler serves the advert listing and advert CRUD endpoints.
type AdvertHandler struct {
	adverts *service.AdvertService
	logger  *slog.Logger
}

func NewAdvertHandler(adverts *service.AdvertService, logger *slog.Logger) *AdvertHandler {
	return &AdvertHandler{adverts: adverts, logger: logger}
}

// HandleSearch lists adverts for the listing page.
//
// HTTP: GET /api/adverts?q=castle&sold=false&orderBy=price&direction=asc&maxPrice=20
//
// Unsold adverts only unless sold=true or sold=any is given.
func (h *AdvertHandler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	q, err := parseAdvertQuery(r.URL.Query())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	adverts, err := h.adverts.Search(r.Context(), q)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, adverts)
}

// HandleLimits returns count and maxima for the same filters HandleSearch
// accepts. Paging and ordering parameters are ignored.
//
// HTTP: GET /api/adverts/limits
func (h *AdvertHandler) HandleLimits(w http.ResponseWriter, r *http.Request) {
	q, err := parseAdvertQuery(r.URL.Query())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	limits, err := h.adverts.SearchLimits(r.Context(), q)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, limits)
}

// HandleGet returns one advert, sold or not.
//
// HTTP: GET /api/adverts/{id}
func (h *AdvertHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	advert, err := h.adverts.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, advert)
}

// HandleByUser lists everything a user has posted, including sold adverts.
//
// HTTP: GET /api/users/{username}/adverts?offset=0&limit=20
func (h *AdvertHandler) HandleByUser(w http.ResponseWriter, r *http.Request) {
	offset, limit, err := parsePage(r.URL.Query())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	adverts, err := h.adverts.ListByOwner(r.Context(), chi.URLParam(r, "username"), offset, limit)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, adverts)
}

// HandleMine lists the signed-in user's adverts.
//
// HTTP: GET /api/me/adverts
// Auth: required
func (h *AdvertHandler) HandleMine(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())
	offset, limit, err := parsePage(r.URL.Query())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	adverts, err := h.adverts.ListByOwnerID(r.Context(), userID, offset, limit)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if adverts == nil {
		adverts = []model.Advert{}
	}
	writeJSON(w, http.StatusOK, adverts)
}

// HandleCreate posts a new advert owned by the signed-in user.
//
// HTTP: POST /api/adverts
// Auth: required
// REQUEST BODY: an advert; id, userId and createdAt are ignored. The
// optional picture is base64 encoded.
func (h *AdvertHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	var advert model.Advert
	if err := decodeJSON(w, r, maxAdvertBody, &advert); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	created, err := h.adverts.Create(r.Context(), userID, &advert)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	w.Header().Set("Location", "/api/adverts/"+strconv.FormatInt(created.ID, 10))
	writeJSON(w, http.StatusCreated, created)
}

// HandleUpdate overwrites every mutable field of an advert.
//
// HTTP: PUT /api/adverts/{id}
// Auth: required, owner only
func (h *AdvertHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	var advert model.Advert
	if err := decodeJSON(w, r, maxAdvertBody, &advert); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	advert.ID = id

	updated, err := h.adverts.Update(r.Context(), userID, &advert)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

type soldRequest struct {
	Sold *bool `json:"sold"`
}

// HandleMarkSold sets only the sold flag.
//
// HTTP: PUT /api/adverts/{id}/sold
// Auth: required, owner only
// REQUEST BODY: {"sold": true}
func (h *AdvertHandler) HandleMarkSold(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	var req soldRequest
	if err := decodeJSON(w, r, 1<<10, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if req.Sold == nil {
		writeError(w, r, h.logger, apperror.ValidationFailed("sold", "sold is required"))
		return
	}

	advert, err := h.adverts.MarkSold(r.Context(), userID, id, *req.Sold)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, advert)
}

// HandleDelete removes an advert. Deleting one that is already gone
// succeeds.
//
// HTTP: DELETE /api/adverts/{id}
// Auth: required, owner only
func (h *AdvertHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	if err := h.adverts.Delete(r.Context(), userID, id); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// parseAdvertQuery turns listing query parameters into a service query.
// Every parameter is optional.
func parseAdvertQuery(v url.Values) (service.AdvertQuery, error) {
	var (
		q   service.AdvertQuery
		err error
	)

	q.Search.Search = strings.TrimSpace(v.Get("q"))
	q.Username = strings.TrimSpace(v.Get("username"))

	if s := v.Get("orderBy"); s != "" {
		if q.Search.OrderBy, err = query.ParseSortField(s); err != nil {
			return q, apperror.ValidationFailed("orderBy", "orderBy must be one of pieceAmount, price, createdAt")
		}
	}
	if s := v.Get("direction"); s != "" {
		if q.Search.Direction, err = query.ParseSortDirection(s); err != nil {
			return q, apperror.ValidationFailed("direction", "direction must be asc or desc")
		}
	}
	if s := v.Get("range"); s != "" {
		if q.Search.Range, err = query.ParseRangeDimension(s); err != nil {
			return q, apperror.ValidationFailed("range", "range must be pieces or price")
		}
	}
	if q.Search.RangeMin, err = floatParam(v, "min"); err != nil {
		return q, err
	}
	if q.Search.RangeMax, err = floatParam(v, "max"); err != nil {
		return q, err
	}

	switch s := strings.ToLower(v.Get("sold")); s {
	case "", "false":
		sold := false
		q.Sold = &sold
	case "true":
		sold := true
		q.Sold = &sold
	case "any":
	default:
		return q, apperror.ValidationFailed("sold", "sold must be true, false or any")
	}

	if q.MinPrice, err = floatParam(v, "minPrice"); err != nil {
		return q, err
	}
	if q.MaxPrice, err = floatParam(v, "maxPrice"); err != nil {
		return q, err
	}
	if q.MinPieces, err = intParam(v, "minPieces"); err != nil {
		return q, err
	}
	if q.MaxPieces, err = intParam(v, "maxPieces"); err != nil {
		return q, err
	}

	q.Offset, q.Limit, err = parsePage(v)
	return q, err
}

func parsePage(v url.Values) (offset, limit int, err error) {
	if p, err := intParam(v, "offset"); err != nil {
		return 0, 0, err
	} else if p != nil {
		offset = *p
	}
	if p, err := intParam(v, "limit"); err != nil {
		return 0, 0, err
	} else if p != nil {
		limit = *p
	}
	return offset, limit, nil
}

func floatParam(v url.Values, name string) (*float64, error) {
	s := v.Get(name)
	if s == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, apperror.ValidationFailed(name, name+" must be a number")
	}
	return &f, nil
}

func intParam(v url.Values, name string) (*int, error) {
	s := v.Get(name)
	if s == "" {
		return nil, nil
	}
	// 32 bits covers the INTEGER columns the value is compared with.
	n, err := strconv.ParseInt(s, 10, 32)
	if err != nil {
		return nil, apperror.ValidationFailed(name, name+" must be a 32-bit integer")
	}
	i := int(n)
	return &i, nil
}
