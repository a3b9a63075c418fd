package services

const (
	DefaultOutputOrder = 100
	MaxOutputOrder     = 32767
)

func boolOr(p *bool, def bool) bool {
	if p == nil {
		return def
	}
	return *p
}

func intOr(p *int, def int) int {
	if p == nil {
		return def
	}
	return *p
}
