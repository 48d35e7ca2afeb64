package domain

// ItemType определяет каталог, которому принадлежит элемент.
type ItemType string

const (
	ItemTypeProject ItemType = "project"
	ItemTypeProduct ItemType = "product"
)

// ImageEmbedding представляет эмбеддинг одного изображения элемента каталога.
// Векторы считаются внешним ML-сервисом и читаются из Qdrant как есть.
type ImageEmbedding struct {
	ItemID   int64
	ItemType ItemType
	ImageID  string // ключ объекта изображения в S3
	Vector   []float32
}

func NewImageEmbedding(itemID int64, itemType ItemType, imageID string, vector []float32) *ImageEmbedding {
	return &ImageEmbedding{
		ItemID:   itemID,
		ItemType: itemType,
		ImageID:  imageID,
		Vector:   vector,
	}
}
