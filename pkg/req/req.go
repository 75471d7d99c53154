package req

import (
	"encoding/json"
	"io"
)

// Decode - JSON тело запроса в T. Неизвестные поля - ошибка
func Decode[T any](body io.ReadCloser) (T, error) {
	defer body.Close()

	var payload T
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&payload); err != nil {
		return payload, err
	}
	return payload, nil
}
