package domain

// ItemAggregate — визуальная сигнатура элемента каталога: нормализованное среднее
// всех его image-векторов плюс исходные векторы для поиска пары-доказательства.
// Агрегат считается заново на каждый пересчёт и никуда не сохраняется.
type ItemAggregate struct {
	ItemID          int64
	ItemType        ItemType
	MeanVector      []float32
	ImageIDs        []string
	VectorByImageID map[string][]float32
}

func NewItemAggregate(itemID int64, itemType ItemType, meanVector []float32) *ItemAggregate {
	return &ItemAggregate{
		ItemID:          itemID,
		ItemType:        itemType,
		MeanVector:      meanVector,
		ImageIDs:        make([]string, 0),
		VectorByImageID: make(map[string][]float32),
	}
}
