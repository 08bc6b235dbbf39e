package scraper

import (
	"encoding/json"
	"fmt"
	"os"
)

type SelectorConfig struct {
	TelegramChannel ChannelSelectors `json:"telegram_channel"`
}

type ChannelSelectors struct {
	Container ChannelContainer `json:"container"`
	Elements  ChannelElements  `json:"elements"`
}

type ChannelContainer struct {
	Item           string `json:"item"`            // e.g., ".tgme_widget_message[data-post]"
	IDAttr         string `json:"id_attr"`         // e.g., "data-post"
	IgnoreModifier string `json:"ignore_modifier"` // e.g., ".service_message"
}

type ChannelElements struct {
	Text  string `json:"text"`
	Photo string `json:"photo"`
	Time  string `json:"time"`
}

// LoadSelectors loads the selector configuration from the specified JSON file.
func LoadSelectors(path string) (SelectorConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return SelectorConfig{}, fmt.Errorf("failed to read selector config file: %w", err)
	}

	return LoadSelectorsFromBytes(data)
}

// LoadSelectorsFromBytes parses selector configuration from raw JSON bytes.
func LoadSelectorsFromBytes(data []byte) (SelectorConfig, error) {
	var config SelectorConfig
	if err := json.Unmarshal(data, &config); err != nil {
		return SelectorConfig{}, fmt.Errorf("failed to parse selector config JSON: %w", err)
	}
	if config.TelegramChannel.Container.Item == "" || config.TelegramChannel.Elements.Text == "" {
		return SelectorConfig{}, fmt.Errorf("selector config is missing telegram_channel item or text selector")
	}
	if config.TelegramChannel.Container.IDAttr == "" {
		config.TelegramChannel.Container.IDAttr = "data-post"
	}

	return config, nil
}

// DefaultSelectors returns the fallback configuration if no JSON file is loaded.
func DefaultSelectors() SelectorConfig {
	return SelectorConfig{
		TelegramChannel: ChannelSelectors{
			Container: ChannelContainer{
				Item:           ".tgme_widget_message[data-post]",
				IDAttr:         "data-post",
				IgnoreModifier: ".service_message",
			},
			Elements: ChannelElements{
				Text:  ".tgme_widget_message_text",
				Photo: ".tgme_widget_message_photo_wrap",
				Time:  ".tgme_widget_message_date time",
			},
		},
	}
}
