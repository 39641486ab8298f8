package domain

// Address is a saved shipping address.
type Address struct {
	ID            int64  `json:"id"`
	RecipientName string `json:"recipient_name"`
	Phone         string `json:"phone"`
	Province      string `json:"province"`
	City          string `json:"city"`
	District      string `json:"district"`
	Address       string `json:"address"`
	IsDefault     bool   `json:"is_default"`
}

// AddressInput is the create/update payload.
type AddressInput struct {
	RecipientName string `json:"recipient_name" validate:"required,max=50"`
	Phone         string `json:"phone" validate:"required,mobile"`
	Province      string `json:"province" validate:"required,max=50"`
	City          string `json:"city" validate:"required,max=50"`
	District      string `json:"district" validate:"required,max=50"`
	Address       string `json:"address" validate:"required,max=200"`
	IsDefault     bool   `json:"is_default"`
}

// Apply copies the input onto a, keeping its id.
func (in AddressInput) Apply(a *Address) {
	a.RecipientName = in.RecipientName
	a.Phone = in.Phone
	a.Province = in.Province
	a.City = in.City
	a.District = in.District
	a.Address = in.Address
	a.IsDefault = in.IsDefault
}

// InputOf returns the editable fields of a.
func InputOf(a Address) AddressInput {
	return AddressInput{
		RecipientName: a.RecipientName,
		Phone:         a.Phone,
		Province:      a.Province,
		City:          a.City,
		District:      a.District,
		Address:       a.Address,
		IsDefault:     a.IsDefault,
	}
}

// MakeDefault marks id as the only default address in list.
func MakeDefault(list []Address, id int64) {
	for i := range list {
		list[i].IsDefault = list[i].ID == id
	}
}

// FindDefault returns the default address, if any.
func FindDefault(list []Address) (Address, bool) {
	for _, a := range list {
		if a.IsDefault {
			return a, true
		}
	}
	return Address{}, false
}

// CountDefaults returns how many addresses are flagged default.
func CountDefaults(list []Address) int {
	n := 0
	for _, a := range list {
		if a.IsDefault {
			n++
		}
	}
	return n
}
