package model

import (
	"time"

	"gorm.io/gorm"
)

type Gender string

const (
	GenderMen    Gender = "men"
	GenderWomen  Gender = "women"
	GenderUnisex Gender = "unisex"
	GenderKids   Gender = "kids"
)

func (g Gender) Valid() bool {
	switch g {
	case GenderMen, GenderWomen, GenderUnisex, GenderKids:
		return true
	}
	return false
}

type Product struct {
	ID          int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	Slug        string         `gorm:"type:varchar(255);not null;uniqueIndex" json:"slug"`
	Name        string         `gorm:"type:varchar(255);not null" json:"name"`
	Description string         `gorm:"type:text" json:"description"`
	Gender      Gender         `gorm:"type:varchar(16);not null;index" json:"gender"`
	Featured    bool           `gorm:"not null;default:false;index" json:"featured"`
	BrandID     *int64         `gorm:"index" json:"brand_id,omitempty"`
	CategoryID  *int64         `gorm:"index" json:"category_id,omitempty"`
	IsActive    bool           `gorm:"not null;default:false" json:"is_active"`
	Brand       *Brand         `json:"brand,omitempty"`
	Category    *Category      `json:"category,omitempty"`
	Images      []ProductImage `gorm:"constraint:OnDelete:CASCADE" json:"images,omitempty"`
	Variants    []Variant      `gorm:"constraint:OnDelete:CASCADE" json:"variants,omitempty"`
	CreatedAt   time.Time      `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"not null;autoUpdateTime" json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`

	// 一覧用。バリアントの実効価格の最小値
	MinPrice int64  `gorm:"->;-:migration" json:"min_price"`
	ImageURL string `gorm:"->;-:migration" json:"image_url,omitempty"`
}

type ProductImage struct {
	ID        int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	ProductID int64  `gorm:"not null;index" json:"product_id"`
	URL       string `gorm:"type:text;not null" json:"url"`
	Position  int    `gorm:"not null;default:0" json:"position"`
}

// 購入単位。IDは外部から見えるSKU相当の文字列
type Variant struct {
	ID        string    `gorm:"type:varchar(64);primaryKey" json:"id"`
	ProductID int64     `gorm:"not null;index" json:"product_id"`
	ColorID   int64     `gorm:"not null;index" json:"color_id"`
	SizeID    int64     `gorm:"not null;index" json:"size_id"`
	Price     int64     `gorm:"not null;check:chk_variants_price,price >= 0" json:"price"`
	SalePrice *int64    `json:"sale_price,omitempty"`
	Stock     int64     `gorm:"not null;default:0" json:"stock"`
	Product   *Product  `json:"-"`
	Color     *Color    `json:"color,omitempty"`
	Size      *Size     `json:"size,omitempty"`
	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

// セール価格があればそちら
func (v Variant) EffectivePrice() int64 {
	if v.SalePrice != nil {
		return *v.SalePrice
	}
	return v.Price
}
