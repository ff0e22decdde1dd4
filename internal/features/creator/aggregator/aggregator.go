// Package aggregator считает метрики автора по его каналам.
package aggregator

import (
	"math"
	"sort"

	channelmodels "teleindex-backend/internal/features/channel/models"
	"teleindex-backend/internal/features/creator/models"
)

// Compute строит метрики автора по снимкам привязанных каналов.
//
// Учитываются только одобренные каналы. Подписчики суммируются по каналам
// с живой ссылкой, а если мёртвы все, то по всем. ER и CPM взвешиваются
// по подписчикам среди каналов с положительным значением. Цены берутся
// только положительные. Результат не зависит от порядка входа.
func Compute(channels []channelmodels.Snapshot) models.Metrics {
	approved := make([]channelmodels.Snapshot, 0, len(channels))
	for _, ch := range channels {
		if ch.Status == channelmodels.StatusApproved {
			approved = append(approved, ch)
		}
	}
	sort.Slice(approved, func(i, j int) bool { return approved[i].ID < approved[j].ID })

	m := models.Metrics{ChannelsCount: len(approved)}
	if len(approved) == 0 {
		return m
	}

	m.SubscribersTotal = subscribersTotal(approved)

	var (
		erSum, erWeight   float64
		cpmSum, cpmWeight float64
		priceSum          int64
		priceCount        int64
		minPrice          int64
	)
	for _, ch := range approved {
		weight := float64(ch.Subscribers)

		if ch.ER != nil && *ch.ER > 0 {
			erSum += *ch.ER * weight
			erWeight += weight
		}
		if ch.CPMRub != nil && *ch.CPMRub > 0 {
			cpmSum += *ch.CPMRub * weight
			cpmWeight += weight
		}
		if ch.PriceRub != nil && *ch.PriceRub > 0 {
			if priceCount == 0 || *ch.PriceRub < minPrice {
				minPrice = *ch.PriceRub
			}
			priceSum += *ch.PriceRub
			priceCount++
		}
		if ch.LastPostAt != nil && (m.LastPostAt == nil || ch.LastPostAt.After(*m.LastPostAt)) {
			t := ch.LastPostAt.UTC()
			m.LastPostAt = &t
		}
	}

	// нулевой вес: среднее не определено
	if erWeight > 0 {
		er := math.Round(erSum/erWeight*1000) / 1000
		m.AvgERPercent = &er
	}
	if cpmWeight > 0 {
		cpm := int64(cpmSum / cpmWeight)
		m.AvgCPMRub = &cpm
	}
	if priceCount > 0 {
		avg := priceSum / priceCount
		m.MinPriceRub = &minPrice
		m.AvgPriceRub = &avg
	}

	return m
}

func subscribersTotal(approved []channelmodels.Snapshot) int64 {
	var alive, all int64
	aliveCount := 0
	for _, ch := range approved {
		all += ch.Subscribers
		if ch.LinkStatus == nil || *ch.LinkStatus != channelmodels.LinkDead {
			alive += ch.Subscribers
			aliveCount++
		}
	}
	if aliveCount == 0 {
		return all
	}
	return alive
}
