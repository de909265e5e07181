package handlers

import (
	"net/http"

	"github.com/ffarena/ff-arena/middleware"
	"github.com/ffarena/ff-arena/services"
)

type TeamHandler struct {
	registrationService services.RegistrationService
}

func NewTeamHandler(registrationService services.RegistrationService) *TeamHandler {
	return &TeamHandler{registrationService: registrationService}
}

// RegisterHandler handles POST /teams. The authenticated user becomes
// the team captain and is charged the entry fee.
func (h *TeamHandler) RegisterHandler(w http.ResponseWriter, r *http.Request) {
	captainID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required to register a team")
		return
	}

	var input services.RegisterTeamInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	team, err := h.registrationService.RegisterTeam(r.Context(), captainID, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"team": team}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// GetByIDHandler handles GET /teams/{teamID}.
func (h *TeamHandler) GetByIDHandler(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "teamID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	team, err := h.registrationService.GetTeamByID(r.Context(), id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"team": team}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
