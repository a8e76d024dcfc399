package utils

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"slices"
)

// UploadRule - ограничения на загружаемый файл.
type UploadRule struct {
	MaxSizeMB        int64
	AllowedMimeTypes []string
}

// ScheduleImportUpload - .xlsx определяется по сигнатуре как zip.
var ScheduleImportUpload = UploadRule{
	MaxSizeMB:        10,
	AllowedMimeTypes: []string{"application/zip", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"},
}

// ValidateFile проверяет размер и тип файла по первым 512 байтам и
// возвращает указатель файла в начало.
func ValidateFile(fileHeader *multipart.FileHeader, file io.ReadSeeker, rule UploadRule) error {
	if rule.MaxSizeMB > 0 {
		maxSizeBytes := rule.MaxSizeMB * 1024 * 1024
		if fileHeader.Size > maxSizeBytes {
			return fmt.Errorf("размер файла (%d KB) превышает лимит в %d MB", fileHeader.Size/1024, rule.MaxSizeMB)
		}
	}

	buffer := make([]byte, 512)
	n, err := file.Read(buffer)
	if err != nil && err != io.EOF {
		return fmt.Errorf("не удалось прочитать файл для определения типа")
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("не удалось сбросить указатель файла")
	}

	mimeType := http.DetectContentType(buffer[:n])
	if !slices.Contains(rule.AllowedMimeTypes, mimeType) {
		return fmt.Errorf("недопустимый тип файла: %s", mimeType)
	}
	return nil
}
