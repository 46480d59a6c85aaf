package domain

// Image описывает загруженное изображение, которое копируется в объектное хранилище.
type Image struct {
	ObjectKey   string // ключ объекта, совпадает с публичным путём uploads/<имя>
	LocalPath   string // путь к файлу на диске
	ContentType string
}

func NewImage(objectKey string, localPath string, contentType string) *Image {
	return &Image{
		ObjectKey:   objectKey,
		LocalPath:   localPath,
		ContentType: contentType,
	}
}
