package model

type Brand struct {
	ID   int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	Slug string `gorm:"type:varchar(64);not null;uniqueIndex" json:"slug"`
	Name string `gorm:"type:varchar(255);not null" json:"name"`
}

type Category struct {
	ID   int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	Slug string `gorm:"type:varchar(64);not null;uniqueIndex" json:"slug"`
	Name string `gorm:"type:varchar(255);not null" json:"name"`
}

type Color struct {
	ID   int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	Slug string `gorm:"type:varchar(64);not null;uniqueIndex" json:"slug"`
	Name string `gorm:"type:varchar(64);not null" json:"name"`
	Hex  string `gorm:"type:varchar(7);not null;default:''" json:"hex"`
}

type Size struct {
	ID        int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	Slug      string `gorm:"type:varchar(32);not null;uniqueIndex" json:"slug"`
	Label     string `gorm:"type:varchar(32);not null" json:"label"`
	SortOrder int    `gorm:"not null;default:0" json:"sort_order"`
}

// フィルタUI用の選択肢一覧
type Facets struct {
	Genders    []Gender   `json:"genders"`
	Colors     []Color    `json:"colors"`
	Sizes      []Size     `json:"sizes"`
	Categories []Category `json:"categories"`
	Brands     []Brand    `json:"brands"`
}

// カート表示用に解決したバリアント
type VariantDetail struct {
	VariantID   string `json:"variant_id"`
	ProductID   int64  `json:"product_id"`
	ProductSlug string `json:"product_slug"`
	Name        string `json:"name"`
	Color       string `json:"color"`
	Size        string `json:"size"`
	Price       int64  `json:"price"`
	ImageURL    string `json:"image_url,omitempty"`
	IsActive    bool   `json:"-"`
}
