// File: lixenwraith/layerconf/decode.go
package layerconf

import (
	"fmt"
	"net"
	"net/netip"
	"net/url"
	"reflect"
	"time"

	"github.com/mitchellh/mapstructure"
)

// decodeInto decodes a tree into target (a non-nil pointer) using the given
// struct tag. Existing values in target are kept unless the tree overrides them.
// Embedded structs read their fields from the same level as the outer struct.
func decodeInto(data any, target any, tag string, strict bool) error {
	rv := reflect.ValueOf(target)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return fmt.Errorf("decode target must be non-nil pointer, got %T", target)
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           target,
		TagName:          tag,
		WeaklyTypedInput: true,
		ErrorUnused:      strict,
		Squash:           true,
		DecodeHook:       decodeHook(),
	})
	if err != nil {
		return fmt.Errorf("decoder creation failed: %w", err)
	}

	return decoder.Decode(data)
}

// decodeHook returns the composite decode hook for all type conversions
func decodeHook() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		// Network types
		stringHook(45, parseIP), // Max IPv6 length
		stringHook(49, parseCIDR),
		stringHook(45, netip.ParseAddr),
		stringHook(49, netip.ParsePrefix),
		stringHook(2048, parseURL),

		// Standard hooks
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToTimeHookFunc(time.RFC3339),
		mapstructure.StringToSliceHookFunc(","),
	)
}

// stringHook converts strings of at most maxLen bytes into T or *T with parse.
func stringHook[T any](maxLen int, parse func(string) (T, error)) mapstructure.DecodeHookFunc {
	target := reflect.TypeFor[T]()
	return func(from reflect.Type, to reflect.Type, data any) (any, error) {
		if from.Kind() != reflect.String {
			return data, nil
		}
		asPtr := to.Kind() == reflect.Pointer && to.Elem() == target
		if to != target && !asPtr {
			return data, nil
		}

		str := reflect.ValueOf(data).String()
		if len(str) > maxLen {
			return nil, fmt.Errorf("invalid %s: length %d exceeds %d", target, len(str), maxLen)
		}
		v, err := parse(str)
		if err != nil {
			return nil, err
		}
		if asPtr {
			return &v, nil
		}
		return v, nil
	}
}

func parseIP(s string) (net.IP, error) {
	ip := net.ParseIP(s)
	if ip == nil {
		return nil, fmt.Errorf("invalid IP address: %s", s)
	}
	return ip, nil
}

func parseCIDR(s string) (net.IPNet, error) {
	_, ipnet, err := net.ParseCIDR(s)
	if err != nil {
		return net.IPNet{}, fmt.Errorf("invalid CIDR: %w", err)
	}
	return *ipnet, nil
}

func parseURL(s string) (url.URL, error) {
	u, err := url.Parse(s)
	if err != nil {
		return url.URL{}, fmt.Errorf("invalid URL: %w", err)
	}
	return *u, nil
}
