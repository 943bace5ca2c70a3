package services

import (
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"imposter-game-backend/internal/random"

	"gopkg.in/yaml.v3"
)

//go:embed topics.yaml
var defaultTopicsYAML []byte

type Topic struct {
	Topic string `yaml:"topic" json:"topic"`
	Hint  string `yaml:"hint" json:"hint"`
}

type TopicPack struct {
	Topics []Topic `yaml:"topics"`
}

// ParseTopicPack decodes and validates a YAML topic pack.
func ParseTopicPack(data []byte) (*TopicPack, error) {
	var pack TopicPack
	if err := yaml.Unmarshal(data, &pack); err != nil {
		return nil, fmt.Errorf("parse topic pack: %w", err)
	}
	if len(pack.Topics) == 0 {
		return nil, errors.New("topic pack is empty")
	}
	for i, t := range pack.Topics {
		if strings.TrimSpace(t.Topic) == "" || strings.TrimSpace(t.Hint) == "" {
			return nil, fmt.Errorf("topic pack entry %d needs both topic and hint", i)
		}
	}
	return &pack, nil
}

// DefaultTopicPack returns the embedded pack.
func DefaultTopicPack() *TopicPack {
	pack, err := ParseTopicPack(defaultTopicsYAML)
	if err != nil {
		panic(err)
	}
	return pack
}

func (p *TopicPack) Pick(rng random.Source) Topic {
	return p.Topics[rng.IntN(len(p.Topics))]
}
