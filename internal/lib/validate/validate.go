package validate

import (
	"github.com/go-playground/validator/v10"
	"sync"
)

var (
	instance *validator.Validate
	once     sync.Once
)

func Struct(s interface{}) error {
	once.Do(func() {
		instance = validator.New()
	})
	return instance.Struct(s)
}
