package model

// All lists every model in migration order.
func All() []interface{} {
	return []interface{}{
		&Store{},
		&StoreDomain{},
		&User{},
		&Product{},
		&Order{},
		&LoginHistory{},
	}
}
