package config

import (
	"log"
	"math"
	"os"
	"strconv"
	"strings"
	"time"
)

// Lookup returns the raw value stored under key.
type Lookup func(key string) (string, bool)

// Env reads the process environment. It is consulted on every call, so values
// loaded or changed after startup are picked up.
func Env() Lookup { return os.LookupEnv }

// Map is a fixed Lookup, mostly for tests.
func Map(m map[string]string) Lookup {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func (l Lookup) raw(k string) string {
	if l == nil {
		return ""
	}
	v, _ := l(k)
	return strings.TrimSpace(v)
}

// Has reports whether k holds a non-blank value.
func (l Lookup) Has(k string) bool { return l.raw(k) != "" }

func (l Lookup) String(k, def string) string {
	if v := l.raw(k); v != "" {
		return v
	}
	return def
}

func (l Lookup) Int(k string, def int) int {
	v := l.raw(k)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("invalid %s=%q, using default %d: %v", k, v, def, err)
		return def
	}
	return n
}

// Int64 coerces any number; decimals are truncated toward zero.
func (l Lookup) Int64(k string, def int64) int64 {
	v := l.raw(k)
	if v == "" {
		return def
	}
	if n, err := strconv.ParseInt(v, 10, 64); err == nil {
		return n
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		log.Printf("invalid %s=%q, using default %d", k, v, def)
		return def
	}
	return int64(f)
}

func (l Lookup) Uint32(k string, def uint32) uint32 {
	v := l.raw(k)
	if v == "" {
		return def
	}
	u, err := strconv.ParseUint(v, 10, 32)
	if err != nil {
		log.Printf("invalid %s=%q, using default %d: %v", k, v, def, err)
		return def
	}
	return uint32(u)
}

func (l Lookup) Float64(k string, def float64) float64 {
	v := l.raw(k)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || math.IsNaN(f) {
		log.Printf("invalid %s=%q, using default %.3f", k, v, def)
		return def
	}
	return f
}

// DurationMS supports either plain integer milliseconds ("1500") or
// Go duration strings ("1.5s", "250ms", "2m").
func (l Lookup) DurationMS(k string, def time.Duration) time.Duration {
	v := l.raw(k)
	if v == "" {
		return def
	}
	if strings.IndexFunc(v, func(r rune) bool { return r < '0' || r > '9' }) != -1 {
		d, err := time.ParseDuration(v)
		if err != nil {
			log.Printf("invalid %s=%q, using default %v: %v", k, v, def, err)
			return def
		}
		return d
	}
	ms, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("invalid %s=%q, using default %v: %v", k, v, def, err)
		return def
	}
	return time.Duration(ms) * time.Millisecond
}

func (l Lookup) CSV(k string) []string {
	s := l.raw(k)
	if s == "" {
		return nil
	}
	raw := strings.Split(s, ",")
	out := make([]string, 0, len(raw))
	for _, p := range raw {
		t := strings.TrimSpace(p)
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}
