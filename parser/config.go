package parser

import (
	"github.com/go-viper/mapstructure/v2"
	"github.com/pkg/errors"
	"github.com/samber/lo"
)

// Config controls which parts of a log the parser yields.
type Config struct {
	// IncludeHeader yields the file header as the first message.
	IncludeHeader bool `json:"include_header"`
	// IncludeTimestamp keeps the timestamp field in decoded records. The timestamp is always
	// available on the record and the LoggedData message.
	IncludeTimestamp bool `json:"include_timestamp"`
	// IncludePadding keeps _padding fields as uint8 arrays.
	IncludePadding bool `json:"include_padding"`
	// SubscriptionAllowList restricts decoding to data records of these message names. Data
	// records of other names are yielded as Ignored. A nil list decodes every name; an empty,
	// non-nil list decodes none.
	SubscriptionAllowList []string `json:"subscription_allow_list"`
}

// RoundTripConfig returns the configuration under which re-encoding every message reproduces the
// input byte for byte.
func RoundTripConfig() Config {
	return Config{
		IncludeHeader:    true,
		IncludeTimestamp: true,
		IncludePadding:   true,
	}
}

// Validate ensures all parts of the config are valid.
func (conf *Config) Validate() error {
	for idx, name := range conf.SubscriptionAllowList {
		if name == "" {
			return errors.Errorf("subscription_allow_list entry %d is empty", idx)
		}
	}
	return nil
}

// allowSet returns the allow list as a set, or nil when every name is allowed.
func (conf *Config) allowSet() map[string]struct{} {
	if conf.SubscriptionAllowList == nil {
		return nil
	}
	return lo.SliceToMap(conf.SubscriptionAllowList, func(name string) (string, struct{}) {
		return name, struct{}{}
	})
}

// ConfigFromMap decodes a config from generic attributes, e.g. a parsed JSON object. Unknown keys
// are an error.
func ConfigFromMap(attributes map[string]interface{}) (Config, error) {
	var conf Config
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:     "json",
		Result:      &conf,
		ErrorUnused: true,
	})
	if err != nil {
		return Config{}, err
	}
	if err := decoder.Decode(attributes); err != nil {
		return Config{}, errors.Wrap(err, "invalid parser config")
	}
	if err := conf.Validate(); err != nil {
		return Config{}, err
	}
	return conf, nil
}
