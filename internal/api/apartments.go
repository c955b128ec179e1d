package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/aptscout/aptscout/internal/listing"
)

func (s *server) listApartments(w http.ResponseWriter, r *http.Request) {
	f := listing.Filter{Status: listing.Status(r.URL.Query().Get("status"))}
	apts, err := s.Apartments.List(r.Context(), f)
	if err != nil {
		s.apartmentError(w, r, err)
		return
	}
	if apts == nil {
		apts = []listing.Apartment{}
	}
	writeJSON(w, http.StatusOK, apts)
}

func (s *server) getApartment(w http.ResponseWriter, r *http.Request) {
	id, ok := apartmentID(w, r)
	if !ok {
		return
	}
	a, err := s.Apartments.Get(r.Context(), id)
	if err != nil {
		s.apartmentError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (s *server) createApartment(w http.ResponseWriter, r *http.Request) {
	var in listing.CreateInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	a, err := s.Apartments.Create(r.Context(), UserID(r.Context()), in)
	if err != nil {
		s.apartmentError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

func (s *server) updateApartment(w http.ResponseWriter, r *http.Request) {
	id, ok := apartmentID(w, r)
	if !ok {
		return
	}
	var in listing.UpdateInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	a, err := s.Apartments.Update(r.Context(), id, in)
	if err != nil {
		s.apartmentError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (s *server) deleteApartment(w http.ResponseWriter, r *http.Request) {
	id, ok := apartmentID(w, r)
	if !ok {
		return
	}
	if err := s.Apartments.Delete(r.Context(), id); err != nil {
		s.apartmentError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func apartmentID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid apartment id")
		return uuid.Nil, false
	}
	return id, true
}

func (s *server) apartmentError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *listing.ValidationError
	switch {
	case errors.Is(err, listing.ErrNotFound):
		writeError(w, http.StatusNotFound, "apartment not found")
	case errors.As(err, &verr):
		writeError(w, http.StatusBadRequest, verr.Error())
	default:
		internalError(w, r, err)
	}
}
