package coco

// BaseModel is our base class for a GORM model.
// The default GORM Model uses int, but we prefer int64
type BaseModel struct {
	ID int64 `gorm:"primaryKey;autoIncrement:false"`
}

type dbImage struct {
	BaseModel
	FileName string
	Width    int
	Height   int
}

func (dbImage) TableName() string {
	return "image"
}

type dbCategory struct {
	BaseModel
	Position      int
	Name          string
	Supercategory string
}

func (dbCategory) TableName() string {
	return "category"
}

type dbAnnotation struct {
	BaseModel
	ImageID    int64
	CategoryID int64
	X          float32
	Y          float32
	Width      float32
	Height     float32
	Area       float32
	IsCrowd    bool
	IsIgnored  bool
}

func (dbAnnotation) TableName() string {
	return "annotation"
}

func (a *dbAnnotation) toAnnotation() Annotation {
	return Annotation{
		ID:         a.ID,
		ImageID:    a.ImageID,
		CategoryID: a.CategoryID,
		BBox:       [4]float32{a.X, a.Y, a.Width, a.Height},
		Area:       a.Area,
		IsCrowd:    a.IsCrowd,
		Ignore:     a.IsIgnored,
	}
}

func fromAnnotation(a *Annotation) dbAnnotation {
	return dbAnnotation{
		BaseModel:  BaseModel{ID: a.ID},
		ImageID:    a.ImageID,
		CategoryID: a.CategoryID,
		X:          a.BBox[0],
		Y:          a.BBox[1],
		Width:      a.BBox[2],
		Height:     a.BBox[3],
		Area:       a.Area,
		IsCrowd:    a.IsCrowd,
		IsIgnored:  a.Ignore,
	}
}
