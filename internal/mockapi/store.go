package mockapi

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/fixture"
	"github.com/utafrali/storefront/internal/verify"
	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/pkg/validator"
)

// Seeded accounts. The fixture user owns the fixture cart, orders and
// addresses.
const (
	DemoPassword  = "testpass123"
	AdminUsername = "admin"
	AdminPassword = "admin123"
)

// Purposes of emailed codes.
const (
	PurposeRegister = "register"
	PurposeLogin    = "login"
	PurposeReset    = "reset"
)

// passwordCost keeps hashing cheap. The accounts only hold demo data.
const passwordCost = bcrypt.MinCost

type account struct {
	user         domain.User
	passwordHash []byte
}

func hashPassword(password string) ([]byte, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(password), passwordCost)
	if err != nil {
		return nil, apperrors.Validation("invalid password", map[string]string{"password": err.Error()})
	}
	return h, nil
}

func mustHashPassword(password string) []byte {
	h, err := hashPassword(password)
	if err != nil {
		panic(err)
	}
	return h
}

func (a *account) checkPassword(password string) bool {
	return bcrypt.CompareHashAndPassword(a.passwordHash, []byte(password)) == nil
}

type favoriteRow struct {
	id        int64
	productID int64
	createdAt time.Time
}

type userData struct {
	cart      domain.Cart
	addresses []domain.Address
	favorites []favoriteRow
}

type emailCode struct {
	code    string
	expires time.Time
}

// Store is the in-memory state of the mock backend. It applies the same
// rules the real backend does and answers with the same messages.
type Store struct {
	mu      sync.Mutex
	now     func() time.Time
	newCode func() string

	accounts   map[int64]*account
	pending    map[string]*account
	data       map[int64]*userData
	categories []domain.Category
	products   []domain.Product
	orders     []domain.Order
	owners     map[int64]int64
	codes      map[string]emailCode
	cooldowns  *verify.Cooldowns

	nextID int64
}

// NewStore seeds a store from the fixture set. now and newCode may be nil.
func NewStore(now func() time.Time, newCode func() string) *Store {
	if now == nil {
		now = time.Now
	}
	if newCode == nil {
		newCode = randomCode
	}
	set := fixture.MustLoad()

	s := &Store{
		now:        now,
		newCode:    newCode,
		accounts:   make(map[int64]*account),
		pending:    make(map[string]*account),
		data:       make(map[int64]*userData),
		categories: set.Categories,
		products:   set.Products,
		orders:     set.Orders,
		owners:     make(map[int64]int64),
		codes:      make(map[string]emailCode),
		cooldowns:  verify.NewCooldowns(verify.ResendInterval),
		nextID:     1000,
	}

	demo := *set.User
	s.accounts[demo.ID] = &account{user: demo, passwordHash: mustHashPassword(DemoPassword)}
	s.data[demo.ID] = &userData{cart: *set.Cart, addresses: set.Addresses}
	for _, o := range set.Orders {
		s.owners[o.ID] = demo.ID
	}

	admin := domain.User{
		ID:         demo.ID + 1,
		Username:   AdminUsername,
		Email:      "admin@example.com",
		Role:       domain.RoleAdmin,
		DateJoined: demo.DateJoined,
		IsActive:   true,
	}
	s.accounts[admin.ID] = &account{user: admin, passwordHash: mustHashPassword(AdminPassword)}
	s.data[admin.ID] = &userData{}
	return s
}

func randomCode() string {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		panic(fmt.Sprintf("read random code: %v", err))
	}
	return fmt.Sprintf("%06d", n.Int64())
}

func (s *Store) id() int64 {
	s.nextID++
	return s.nextID
}

func notFound(msg string) *apperrors.AppError {
	return &apperrors.AppError{Code: "NOT_FOUND", Message: msg, Status: http.StatusNotFound, Err: apperrors.ErrNotFound}
}

// userData returns the per-user state, creating it on first use. Callers
// hold mu.
func (s *Store) userData(userID int64) *userData {
	d, ok := s.data[userID]
	if !ok {
		d = &userData{}
		s.data[userID] = d
	}
	return d
}

// ---------------------------------------------------------------------------
// Accounts
// ---------------------------------------------------------------------------

func (s *Store) findByUsername(username string) *account {
	for _, a := range s.accounts {
		if a.user.Username == username {
			return a
		}
	}
	return nil
}

func (s *Store) findByEmail(email string) *account {
	for _, a := range s.accounts {
		if strings.EqualFold(a.user.Email, email) {
			return a
		}
	}
	return nil
}

// Login checks credentials.
func (s *Store) Login(creds domain.Credentials) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a := s.findByUsername(creds.Username)
	if a == nil {
		return nil, apperrors.InvalidInput("用户不存在，请先注册")
	}
	if !a.checkPassword(creds.Password) {
		return nil, apperrors.InvalidInput("密码错误，请重试")
	}
	return a.user.Clone(), nil
}

// User returns an account's profile.
func (s *Store) User(id int64) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if !ok {
		return nil, notFound("用户不存在")
	}
	return a.user.Clone(), nil
}

// Register records a registration awaiting its emailed code and sends it.
func (s *Store) Register(in domain.RegisterInput) (*domain.User, string, error) {
	if err := validator.Check(in); err != nil {
		return nil, "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.findByUsername(in.Username) != nil {
		return nil, "", apperrors.Validation("username taken",
			map[string]string{"username": "A user with that username already exists."})
	}
	if s.findByEmail(in.Email) != nil {
		return nil, "", apperrors.Validation("email taken", map[string]string{"email": "该邮箱已被注册"})
	}

	hash, err := hashPassword(in.Password)
	if err != nil {
		return nil, "", err
	}
	code, err := s.issueCode(PurposeRegister, in.Email)
	if err != nil {
		return nil, "", err
	}
	u := domain.User{
		ID:         s.id(),
		Username:   in.Username,
		Email:      in.Email,
		Role:       domain.RoleUser,
		DateJoined: domain.NewTime(s.now()),
		IsActive:   true,
	}
	s.pending[strings.ToLower(in.Email)] = &account{user: u, passwordHash: hash}
	return u.Clone(), code, nil
}

// VerifyRegister activates a pending registration.
func (s *Store) VerifyRegister(in domain.EmailCode) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.consumeCode(PurposeRegister, in); err != nil {
		return nil, err
	}
	key := strings.ToLower(in.Email)
	a, ok := s.pending[key]
	if !ok {
		return nil, apperrors.InvalidInput("验证码已过期或不存在")
	}
	delete(s.pending, key)
	s.accounts[a.user.ID] = a
	return a.user.Clone(), nil
}

// SendCode emails a one-time code for purpose. It returns the code so the
// caller can log it in place of sending mail.
func (s *Store) SendCode(purpose, email string) (string, error) {
	if err := validator.Validate(struct {
		Email string `json:"email" validate:"required,email"`
	}{email}); err != nil {
		return "", apperrors.InvalidInput("邮箱格式不正确")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if purpose == PurposeReset && s.findByEmail(email) == nil {
		return "", notFound("该邮箱未注册")
	}
	return s.issueCode(purpose, email)
}

// issueCode applies the resend countdown and stores a fresh code. Callers
// hold mu.
func (s *Store) issueCode(purpose, email string) (string, error) {
	if err := s.cooldowns.For(purpose + ":" + email).TryResend(s.now()); err != nil {
		return "", err
	}
	code := s.newCode()
	s.codes[purpose+":"+strings.ToLower(email)] = emailCode{code: code, expires: s.now().Add(verify.CodeTTL)}
	return code, nil
}

// consumeCode checks and deletes a code. Callers hold mu.
func (s *Store) consumeCode(purpose string, in domain.EmailCode) error {
	if in.Email == "" || in.Code == "" {
		return apperrors.InvalidInput("邮箱和验证码不能为空")
	}
	key := purpose + ":" + strings.ToLower(in.Email)
	stored, ok := s.codes[key]
	if !ok || s.now().After(stored.expires) {
		delete(s.codes, key)
		return apperrors.InvalidInput("验证码已过期或不存在")
	}
	if stored.code != in.Code {
		return apperrors.InvalidInput("验证码错误")
	}
	delete(s.codes, key)
	return nil
}

// EmailLogin signs in with an emailed code, creating the account on first
// use.
func (s *Store) EmailLogin(in domain.EmailCode) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.consumeCode(PurposeLogin, in); err != nil {
		return nil, err
	}
	if a := s.findByEmail(in.Email); a != nil {
		return a.user.Clone(), nil
	}

	base := strings.SplitN(in.Email, "@", 2)[0]
	username := base
	for n := 1; s.findByUsername(username) != nil; n++ {
		username = fmt.Sprintf("%s%d", base, n)
	}
	a := &account{
		user: domain.User{
			ID:         s.id(),
			Username:   username,
			Email:      in.Email,
			Role:       domain.RoleUser,
			DateJoined: domain.NewTime(s.now()),
			IsActive:   true,
		},
		passwordHash: mustHashPassword(randomCode() + randomCode()),
	}
	s.accounts[a.user.ID] = a
	return a.user.Clone(), nil
}

// ResetPassword sets a new password with an emailed reset code.
func (s *Store) ResetPassword(in domain.PasswordReset) error {
	if err := validator.Check(in); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.consumeCode(PurposeReset, domain.EmailCode{Email: in.Email, Code: in.Code}); err != nil {
		return err
	}
	a := s.findByEmail(in.Email)
	if a == nil {
		return notFound("该邮箱未注册")
	}
	hash, err := hashPassword(in.NewPassword)
	if err != nil {
		return err
	}
	a.passwordHash = hash
	return nil
}

// UpdateUser applies a profile patch.
func (s *Store) UpdateUser(id int64, in domain.ProfileUpdate) (*domain.User, error) {
	if err := validator.Check(in); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if !ok {
		return nil, notFound("用户不存在")
	}
	if in.Username != nil && *in.Username != a.user.Username {
		if s.findByUsername(*in.Username) != nil {
			return nil, apperrors.Validation("username taken",
				map[string]string{"username": "A user with that username already exists."})
		}
		a.user.Username = *in.Username
	}
	return a.user.Clone(), nil
}

// ChangePassword replaces a password after checking the old one.
func (s *Store) ChangePassword(id int64, in domain.PasswordChange) error {
	if err := validator.Check(in); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if !ok {
		return notFound("用户不存在")
	}
	if !a.checkPassword(in.OldPassword) {
		return apperrors.Validation("wrong password", map[string]string{"old_password": "Wrong password."})
	}
	hash, err := hashPassword(in.NewPassword)
	if err != nil {
		return err
	}
	a.passwordHash = hash
	return nil
}

// ---------------------------------------------------------------------------
// Catalog
// ---------------------------------------------------------------------------

// Categories lists the categories.
func (s *Store) Categories() []domain.Category {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.categories)
}

func (s *Store) favorited(userID int64) map[int64]bool {
	out := make(map[int64]bool)
	if d, ok := s.data[userID]; ok {
		for _, f := range d.favorites {
			out[f.productID] = true
		}
	}
	return out
}

// Products lists active products matching f. userID may be zero for an
// anonymous caller.
func (s *Store) Products(f domain.ProductFilter, userID int64) []domain.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	active := make([]domain.Product, 0, len(s.products))
	for _, p := range s.products {
		if p.IsActive {
			active = append(active, p)
		}
	}
	out := f.Apply(active)
	fav := s.favorited(userID)
	for i := range out {
		out[i].IsFavorited = fav[out[i].ID]
	}
	return out
}

// Product returns an active product.
func (s *Store) Product(id, userID int64) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.productLocked(id)
	if p == nil || !p.IsActive {
		return nil, notFound("商品不存在")
	}
	out := p.Clone()
	out.IsFavorited = s.favorited(userID)[id]
	return out, nil
}

func (s *Store) productLocked(id int64) *domain.Product {
	for i := range s.products {
		if s.products[i].ID == id {
			return &s.products[i]
		}
	}
	return nil
}

// AdminProducts lists every product.
func (s *Store) AdminProducts() []domain.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	return domain.CloneProducts(s.products)
}

func (s *Store) categoryName(id int64) (string, bool) {
	for _, c := range s.categories {
		if c.ID == id {
			return c.Name, true
		}
	}
	return "", false
}

// SaveProduct creates a product when id is zero and replaces it otherwise.
func (s *Store) SaveProduct(id int64, in domain.ProductInput) (*domain.Product, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	name, ok := s.categoryName(in.CategoryID)
	if !ok {
		return nil, apperrors.Validation("unknown category",
			map[string]string{"category": fmt.Sprintf("Invalid pk \"%d\" - object does not exist.", in.CategoryID)})
	}

	var p *domain.Product
	if id == 0 {
		s.products = append(s.products, domain.Product{ID: s.id(), CreatedAt: domain.NewTime(s.now())})
		p = &s.products[len(s.products)-1]
	} else if p = s.productLocked(id); p == nil {
		return nil, notFound("商品不存在")
	}
	in.Apply(p)
	p.CategoryName = name
	return p.Clone(), nil
}

// DeleteProduct removes a product. Order lines keep their snapshot.
func (s *Store) DeleteProduct(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.products)
	s.products = slices.DeleteFunc(s.products, func(p domain.Product) bool { return p.ID == id })
	if len(s.products) == n {
		return notFound("商品不存在")
	}
	for _, d := range s.data {
		d.cart.Items = slices.DeleteFunc(d.cart.Items, func(it domain.CartItem) bool { return it.ProductID == id })
		d.favorites = slices.DeleteFunc(d.favorites, func(f favoriteRow) bool { return f.productID == id })
	}
	return nil
}

// ---------------------------------------------------------------------------
// Cart
// ---------------------------------------------------------------------------

// Cart returns a user's cart with settled totals.
func (s *Store) Cart(userID int64) *domain.Cart {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.userData(userID).cart.Clone()
	if c.ID == 0 {
		c.ID = userID
	}
	if c.Items == nil {
		c.Items = []domain.CartItem{}
	}
	c.Settle()
	return c
}

// AddCartItem adds a line or merges into the existing one.
func (s *Store) AddCartItem(userID int64, line domain.CartLine) error {
	if line.ProductID == 0 {
		return apperrors.InvalidInput("商品ID不能为空")
	}
	if line.Quantity == 0 {
		line.Quantity = 1
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.productLocked(line.ProductID)
	if p == nil || !p.IsActive {
		return notFound("商品不存在")
	}
	if p.Stock < line.Quantity {
		return apperrors.InvalidInput("库存不足")
	}

	cart := &s.userData(userID).cart
	if i := cart.FindProductIndex(line.ProductID); i >= 0 {
		item := &cart.Items[i]
		if item.Quantity+line.Quantity > p.Stock {
			return apperrors.InvalidInput("库存不足")
		}
		item.Quantity += line.Quantity
		item.Recompute()
		return nil
	}
	item := domain.CartItem{
		ID:        s.id(),
		ProductID: p.ID,
		Product:   p.Snapshot(),
		Quantity:  line.Quantity,
		CreatedAt: domain.NewTime(s.now()),
	}
	item.Recompute()
	cart.Items = append(cart.Items, item)
	return nil
}

// UpdateCartItem sets a line's quantity. A quantity of zero or less deletes
// the line and reports removed.
func (s *Store) UpdateCartItem(userID, itemID int64, qty int) (removed bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cart := &s.userData(userID).cart
	i := cart.FindItemIndex(itemID)
	if i < 0 {
		return false, notFound("购物车项不存在")
	}
	if qty <= 0 {
		cart.Items = slices.Delete(cart.Items, i, i+1)
		return true, nil
	}
	stock := cart.Items[i].Product.Stock
	if p := s.productLocked(cart.Items[i].ProductID); p != nil {
		stock = p.Stock
	}
	if stock < qty {
		return false, apperrors.InvalidInput("库存不足")
	}
	cart.Items[i].Quantity = qty
	cart.Items[i].Recompute()
	return false, nil
}

// RemoveCartItem deletes a line.
func (s *Store) RemoveCartItem(userID, itemID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cart := &s.userData(userID).cart
	i := cart.FindItemIndex(itemID)
	if i < 0 {
		return notFound("购物车项不存在")
	}
	cart.Items = slices.Delete(cart.Items, i, i+1)
	return nil
}

// ClearCart deletes every line.
func (s *Store) ClearCart(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.userData(userID).cart.Items = nil
}

// ---------------------------------------------------------------------------
// Orders
// ---------------------------------------------------------------------------

func statusMatches(o domain.Order, status domain.OrderStatus) bool {
	return status == "" || o.Status.Canonical() == status.Canonical()
}

// Orders lists a user's orders, newest first. userID zero lists everyone's.
func (s *Store) Orders(userID int64, status domain.OrderStatus) []domain.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Order, 0)
	for _, o := range s.orders {
		if (userID == 0 || s.owners[o.ID] == userID) && statusMatches(o, status) {
			out = append(out, *o.Clone())
		}
	}
	return out
}

func (s *Store) orderLocked(userID, id int64) *domain.Order {
	for i := range s.orders {
		if s.orders[i].ID == id && (userID == 0 || s.owners[id] == userID) {
			return &s.orders[i]
		}
	}
	return nil
}

// Order returns one of a user's orders.
func (s *Store) Order(userID, id int64) (*domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o := s.orderLocked(userID, id)
	if o == nil {
		return nil, notFound("订单不存在")
	}
	return o.Clone(), nil
}

// CreateOrder places an order, takes stock and drops the ordered products
// from the cart.
func (s *Store) CreateOrder(userID int64, in domain.CreateOrderInput) (*domain.Order, error) {
	if err := validator.Check(in); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	d := s.userData(userID)

	ai := slices.IndexFunc(d.addresses, func(a domain.Address) bool { return a.ID == in.AddressID })
	if ai < 0 {
		return nil, notFound("地址不存在")
	}

	type taken struct {
		p   *domain.Product
		qty int
	}
	lines := make([]taken, 0, len(in.Items))
	for _, line := range in.Items {
		p := s.productLocked(line.ProductID)
		if p == nil || !p.IsActive {
			return nil, notFound(fmt.Sprintf("商品 %d 不存在", line.ProductID))
		}
		if p.Stock < line.Quantity {
			return nil, apperrors.InvalidInput(fmt.Sprintf("商品 %s 库存不足", p.Name))
		}
		lines = append(lines, taken{p: p, qty: line.Quantity})
	}

	o := domain.Order{
		ID:           s.id(),
		Status:       domain.StatusPending,
		ShippingInfo: domain.ShippingFrom(&d.addresses[ai]),
		CreatedAt:    domain.NewTime(s.now()),
		TotalAmount:  domain.Zero,
	}
	o.OrderNo = fmt.Sprintf("ORD%s%04d", s.now().Format("20060102"), o.ID%10000)
	o.StatusDisplay = o.Status.Display()

	ordered := make(map[int64]bool, len(lines))
	for _, l := range lines {
		item := domain.OrderItem{
			ID:          s.id(),
			ProductID:   l.p.ID,
			ProductName: l.p.Name,
			Price:       l.p.Price,
			Quantity:    l.qty,
			Subtotal:    l.p.Price.Mul(l.qty),
		}
		if l.p.MainImage != nil {
			item.ProductImage = l.p.MainImage.URL
		}
		o.Items = append(o.Items, item)
		o.TotalAmount = o.TotalAmount.Add(item.Subtotal)
		l.p.Stock -= l.qty
		ordered[l.p.ID] = true
	}

	d.cart.Items = slices.DeleteFunc(d.cart.Items, func(it domain.CartItem) bool { return ordered[it.ProductID] })
	s.orders = append([]domain.Order{o}, s.orders...)
	s.owners[o.ID] = userID
	return o.Clone(), nil
}

// actionMessages are the acknowledgement and rejection texts per action.
var actionMessages = map[domain.OrderAction][2]string{
	domain.ActionPay:     {"支付成功", "订单状态不正确"},
	domain.ActionCancel:  {"订单已取消", "该订单无法取消"},
	domain.ActionConfirm: {"确认收货成功", "订单状态不正确"},
	domain.ActionShip:    {"发货成功", "只能对已支付订单发货"},
}

// OrderAction performs a status action on one of a user's orders, or on any
// order when userID is zero. It returns the acknowledgement message.
func (s *Store) OrderAction(userID, id int64, action domain.OrderAction, trackingNo string) (string, error) {
	msgs, ok := actionMessages[action]
	if !ok {
		return "", apperrors.InvalidInput(fmt.Sprintf("unknown action %q", action))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	o := s.orderLocked(userID, id)
	if o == nil {
		return "", notFound("订单不存在")
	}
	if err := o.Apply(action, s.now()); err != nil {
		return "", apperrors.InvalidInput(msgs[1])
	}
	switch action {
	case domain.ActionCancel:
		for _, item := range o.Items {
			if p := s.productLocked(item.ProductID); p != nil {
				p.Stock += item.Quantity
			}
		}
	case domain.ActionShip:
		o.TrackingNo = trackingNo
	}
	return msgs[0], nil
}

// ---------------------------------------------------------------------------
// Addresses
// ---------------------------------------------------------------------------

// Addresses lists a user's addresses.
func (s *Store) Addresses(userID int64) []domain.Address {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := slices.Clone(s.userData(userID).addresses)
	if out == nil {
		out = []domain.Address{}
	}
	return out
}

// SaveAddress creates an address when id is zero and replaces it
// otherwise. Saving a default address clears the flag on the others.
func (s *Store) SaveAddress(userID, id int64, in domain.AddressInput) (*domain.Address, error) {
	if err := validator.Check(in); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	d := s.userData(userID)

	var i int
	if id == 0 {
		d.addresses = append(d.addresses, domain.Address{ID: s.id()})
		i = len(d.addresses) - 1
	} else if i = slices.IndexFunc(d.addresses, func(a domain.Address) bool { return a.ID == id }); i < 0 {
		return nil, notFound("地址不存在")
	}
	in.Apply(&d.addresses[i])
	if in.IsDefault {
		domain.MakeDefault(d.addresses, d.addresses[i].ID)
	}
	out := d.addresses[i]
	return &out, nil
}

// DeleteAddress removes an address.
func (s *Store) DeleteAddress(userID, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := s.userData(userID)
	n := len(d.addresses)
	d.addresses = slices.DeleteFunc(d.addresses, func(a domain.Address) bool { return a.ID == id })
	if len(d.addresses) == n {
		return notFound("地址不存在")
	}
	return nil
}

// ---------------------------------------------------------------------------
// Favorites
// ---------------------------------------------------------------------------

// Favorites lists a user's favorites, newest first.
func (s *Store) Favorites(userID int64) []domain.Favorite {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows := s.userData(userID).favorites
	out := make([]domain.Favorite, 0, len(rows))
	for i := len(rows) - 1; i >= 0; i-- {
		p := s.productLocked(rows[i].productID)
		if p == nil {
			continue
		}
		fav := domain.Favorite{ID: rows[i].id, Product: *p.Clone(), CreatedAt: domain.NewTime(rows[i].createdAt)}
		fav.Product.IsFavorited = true
		out = append(out, fav)
	}
	return out
}

// ToggleFavorite flips a product's favorite flag and reports whether it was
// added.
func (s *Store) ToggleFavorite(userID, productID int64) (domain.ToggleResult, error) {
	if productID == 0 {
		return domain.ToggleResult{}, apperrors.InvalidInput("商品ID不能为空")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.productLocked(productID) == nil {
		return domain.ToggleResult{}, notFound("商品不存在")
	}
	d := s.userData(userID)
	if i := slices.IndexFunc(d.favorites, func(f favoriteRow) bool { return f.productID == productID }); i >= 0 {
		d.favorites = slices.Delete(d.favorites, i, i+1)
		return domain.ToggleResult{Message: "已取消收藏", IsFavorited: false}, nil
	}
	d.favorites = append(d.favorites, favoriteRow{id: s.id(), productID: productID, createdAt: s.now()})
	return domain.ToggleResult{Message: "已添加到收藏夹", IsFavorited: true}, nil
}

// RemoveFavorite drops a product from a user's favorites.
func (s *Store) RemoveFavorite(userID, productID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := s.userData(userID)
	n := len(d.favorites)
	d.favorites = slices.DeleteFunc(d.favorites, func(f favoriteRow) bool { return f.productID == productID })
	if len(d.favorites) == n {
		return notFound("该商品不在收藏夹中")
	}
	return nil
}
