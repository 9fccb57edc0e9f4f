package metrics

import (
	"github.com/bnema/touchicons/internal/application/port"
	"github.com/bnema/touchicons/internal/domain/entity"
)

type iconObserver struct {
	m       *Metrics
	profile string
}

// Observer returns an icon observer counting events for profile.
func (m *Metrics) Observer(profile string) port.IconObserver {
	return &iconObserver{m: m, profile: profile}
}

func (o *iconObserver) OnIconStored(record *entity.IconRecord, _ string) {
	iconType := entity.IconTypeUnknown
	if record != nil {
		iconType = record.IconType
	}
	o.m.IconsStored.WithLabelValues(o.profile, iconType.String()).Inc()
}

func (o *iconObserver) OnIconEvicted(_, _ string) {
	o.m.IconsEvicted.WithLabelValues(o.profile).Inc()
}

func (o *iconObserver) OnIconLoadComplete(_ string, success bool) {
	result := "failure"
	if success {
		result = "success"
	}
	o.m.IconLoads.WithLabelValues(o.profile, result).Inc()
}
