package mockapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/pkg/httputil"
)

// page is the paginated list shape of the products endpoint.
type page[T any] struct {
	Count    int     `json:"count"`
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
	Results  []T     `json:"results"`
}

type quantityRequest struct {
	Quantity int `json:"quantity"`
}

// --- Catalog ---

// Categories handles GET categories/
func (s *Server) Categories(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, s.store.Categories())
}

// Products handles GET products/
func (s *Server) Products(w http.ResponseWriter, r *http.Request) {
	f := domain.ProductFilterFromQuery(r.URL.Query())
	if err := f.Validate(); err != nil {
		s.fail(w, r, err)
		return
	}
	list := s.store.Products(f, userID(r))
	httputil.WriteJSON(w, http.StatusOK, page[domain.Product]{Count: len(list), Results: list})
}

// Product handles GET products/{id}/
func (s *Server) Product(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	p, err := s.store.Product(id, userID(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, p)
}

// AdminProducts handles GET admin/products/
func (s *Server) AdminProducts(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, s.store.AdminProducts())
}

// CreateProduct handles POST admin/products/
func (s *Server) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var in domain.ProductInput
	if !decode(w, r, &in) {
		return
	}
	p, err := s.store.SaveProduct(0, in)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, p)
}

// UpdateProduct handles PUT admin/products/{id}/
func (s *Server) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	var in domain.ProductInput
	if !decode(w, r, &in) {
		return
	}
	p, err := s.store.SaveProduct(id, in)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, p)
}

// DeleteProduct handles DELETE admin/products/{id}/
func (s *Server) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	if err := s.store.DeleteProduct(id); err != nil {
		s.fail(w, r, err)
		return
	}
	httputil.WriteNoContent(w)
}

// --- Cart ---

// Cart handles GET cart/
func (s *Server) Cart(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, s.store.Cart(userID(r)))
}

// AddCartItem handles POST cart/add_item/
func (s *Server) AddCartItem(w http.ResponseWriter, r *http.Request) {
	var line domain.CartLine
	if !decode(w, r, &line) {
		return
	}
	if err := s.store.AddCartItem(userID(r), line); err != nil {
		s.reject(w, r, err)
		return
	}
	httputil.WriteMessage(w, http.StatusCreated, "添加成功")
}

// UpdateCartItem handles PUT cart/update_item/{id}/
func (s *Server) UpdateCartItem(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	var req quantityRequest
	if !decode(w, r, &req) {
		return
	}
	removed, err := s.store.UpdateCartItem(userID(r), id, req.Quantity)
	if err != nil {
		s.reject(w, r, err)
		return
	}
	if removed {
		httputil.WriteNoContent(w)
		return
	}
	httputil.WriteMessage(w, http.StatusOK, "更新成功")
}

// RemoveCartItem handles DELETE cart/remove_item/{id}/
func (s *Server) RemoveCartItem(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	if err := s.store.RemoveCartItem(userID(r), id); err != nil {
		s.reject(w, r, err)
		return
	}
	httputil.WriteNoContent(w)
}

// ClearCart handles POST cart/clear/
func (s *Server) ClearCart(w http.ResponseWriter, r *http.Request) {
	s.store.ClearCart(userID(r))
	httputil.WriteMessage(w, http.StatusOK, "购物车已清空")
}

// --- Orders ---

// Orders handles GET orders/
func (s *Server) Orders(w http.ResponseWriter, r *http.Request) {
	status := domain.OrderStatus(r.URL.Query().Get("status"))
	httputil.WriteJSON(w, http.StatusOK, s.store.Orders(userID(r), status))
}

// CreateOrder handles POST orders/
func (s *Server) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var in domain.CreateOrderInput
	if !decode(w, r, &in) {
		return
	}
	o, err := s.store.CreateOrder(userID(r), in)
	if err != nil {
		s.reject(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, o)
}

// Order handles GET orders/{id}/
func (s *Server) Order(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	o, err := s.store.Order(userID(r), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, o)
}

// OrderAction returns the handler of POST orders/{id}/{action}/.
func (s *Server) OrderAction(action domain.OrderAction) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := httputil.ParseID(w, chi.URLParam(r, "id"))
		if !ok {
			return
		}
		msg, err := s.store.OrderAction(userID(r), id, action, "")
		if err != nil {
			s.reject(w, r, err)
			return
		}
		httputil.WriteMessage(w, http.StatusOK, msg)
	}
}

// AdminOrders handles GET admin/orders/
func (s *Server) AdminOrders(w http.ResponseWriter, r *http.Request) {
	status := domain.OrderStatus(r.URL.Query().Get("status"))
	httputil.WriteJSON(w, http.StatusOK, s.store.Orders(0, status))
}

// ShipOrder handles POST admin/orders/{id}/ship/
func (s *Server) ShipOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	var in domain.ShipInput
	if !decode(w, r, &in) {
		return
	}
	if in.TrackingNo == "" {
		httputil.WriteJSON(w, http.StatusBadRequest, map[string]string{"error": "请填写物流单号"})
		return
	}
	msg, err := s.store.OrderAction(0, id, domain.ActionShip, in.TrackingNo)
	if err != nil {
		s.reject(w, r, err)
		return
	}
	httputil.WriteMessage(w, http.StatusOK, msg)
}
