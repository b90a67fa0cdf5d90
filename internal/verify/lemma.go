package verify

import (
	"fmt"

	"github.com/aaaton/golem/v4"
	"github.com/aaaton/golem/v4/dicts/en"
)

// NewEnglishLemmatizer 加载 golem 英文词典
func NewEnglishLemmatizer() (Lemmatizer, error) {
	lemmatizer, err := golem.New(en.New())
	if err != nil {
		return nil, fmt.Errorf("load english lemmatizer: %w", err)
	}
	return lemmatizer, nil
}
