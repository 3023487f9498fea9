package handlers

import (
	"errors"
	"net/http"

	"github.com/kegtrack/bracket-engine/services"
)

type TeamHandler struct {
	teamService services.TeamService
}

func NewTeamHandler(ts services.TeamService) *TeamHandler {
	return &TeamHandler{teamService: ts}
}

// AddHandler handles POST /tournaments/{tournamentID}/teams.
func (h *TeamHandler) AddHandler(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input services.AddTeamInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	team, err := h.teamService.AddTeam(r.Context(), tournamentID, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"team": team}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// PromoteHandler handles POST /tournaments/{tournamentID}/teams/promote.
func (h *TeamHandler) PromoteHandler(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input struct {
		PoolTeamID int `json:"pool_team_id"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	team, err := h.teamService.PromoteFromPool(r.Context(), tournamentID, input.PoolTeamID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"team": team}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// RemoveHandler handles DELETE /teams/{teamID}.
func (h *TeamHandler) RemoveHandler(w http.ResponseWriter, r *http.Request) {
	teamID, err := getIDFromURL(r, "teamID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if err := h.teamService.RemoveTeam(r.Context(), teamID); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UploadCrestHandler handles PUT /teams/{teamID}/crest with a multipart
// form carrying a single "crest" file.
func (h *TeamHandler) UploadCrestHandler(w http.ResponseWriter, r *http.Request) {
	teamID, err := getIDFromURL(r, "teamID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if err := r.ParseMultipartForm(5 << 20); err != nil {
		badRequestResponse(w, r, errors.New("failed to parse multipart form (5MB limit)"))
		return
	}
	file, header, err := r.FormFile("crest")
	if err != nil {
		badRequestResponse(w, r, errors.New("missing crest file"))
		return
	}
	defer file.Close()

	team, err := h.teamService.UploadCrest(r.Context(), teamID, header.Header.Get("Content-Type"), file)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"team": team}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ListPoolHandler handles GET /pool-teams.
func (h *TeamHandler) ListPoolHandler(w http.ResponseWriter, r *http.Request) {
	poolTeams, err := h.teamService.ListPool(r.Context())
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"pool_teams": poolTeams}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// AddPoolHandler handles POST /pool-teams.
func (h *TeamHandler) AddPoolHandler(w http.ResponseWriter, r *http.Request) {
	var input services.AddTeamInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	poolTeam, err := h.teamService.AddPoolTeam(r.Context(), input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"pool_team": poolTeam}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
