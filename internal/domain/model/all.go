package model

// マイグレーション対象
func All() []interface{} {
	return []interface{}{
		&User{},
		&RefreshToken{},
		&GuestSession{},
		&Brand{},
		&Category{},
		&Color{},
		&Size{},
		&Product{},
		&ProductImage{},
		&Variant{},
		&Cart{},
		&CartItem{},
		&Order{},
		&OrderItem{},
		&AuditLog{},
	}
}
