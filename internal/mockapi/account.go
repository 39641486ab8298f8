package mockapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/pkg/httputil"
)

type toggleRequest struct {
	ProductID int64 `json:"product_id"`
}

// Addresses handles GET addresses/
func (s *Server) Addresses(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, s.store.Addresses(userID(r)))
}

// CreateAddress handles POST addresses/
func (s *Server) CreateAddress(w http.ResponseWriter, r *http.Request) {
	var in domain.AddressInput
	if !decode(w, r, &in) {
		return
	}
	a, err := s.store.SaveAddress(userID(r), 0, in)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, a)
}

// UpdateAddress handles PUT addresses/{id}/
func (s *Server) UpdateAddress(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	var in domain.AddressInput
	if !decode(w, r, &in) {
		return
	}
	a, err := s.store.SaveAddress(userID(r), id, in)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, a)
}

// DeleteAddress handles DELETE addresses/{id}/
func (s *Server) DeleteAddress(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	if err := s.store.DeleteAddress(userID(r), id); err != nil {
		s.fail(w, r, err)
		return
	}
	httputil.WriteNoContent(w)
}

// Favorites handles GET favorites/
func (s *Server) Favorites(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, s.store.Favorites(userID(r)))
}

// ToggleFavorite handles POST favorites/toggle/
func (s *Server) ToggleFavorite(w http.ResponseWriter, r *http.Request) {
	var req toggleRequest
	if !decode(w, r, &req) {
		return
	}
	res, err := s.store.ToggleFavorite(userID(r), req.ProductID)
	if err != nil {
		s.reject(w, r, err)
		return
	}
	status := http.StatusOK
	if res.IsFavorited {
		status = http.StatusCreated
	}
	httputil.WriteJSON(w, status, res)
}

// RemoveFavorite handles DELETE favorites/remove/{id}/
func (s *Server) RemoveFavorite(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	if err := s.store.RemoveFavorite(userID(r), id); err != nil {
		s.reject(w, r, err)
		return
	}
	httputil.WriteNoContent(w)
}
