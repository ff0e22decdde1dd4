package service

import (
	"fmt"
	"time"

	channelmodels "teleindex-backend/internal/features/channel/models"
	creatormodels "teleindex-backend/internal/features/creator/models"
	"teleindex-backend/internal/platform/telegram"
)

type demoChannel struct {
	username    string
	name        string
	category    string
	description string
	subscribers int64
	er          float64
	price       int64
	cpm         float64
	growth      float64
}

var demoChannels = []demoChannel{
	{"tech_daily_ru", "Технологии каждый день", "Технологии", "Новости гаджетов и IT", 184000, 6.2, 18000, 420, 3.4},
	{"crypto_pulse_ru", "Крипто Пульс", "Криптовалюты", "Рынок, аналитика, сигналы", 96000, 4.8, 12000, 510, 5.1},
	{"biz_insider_ru", "Бизнес Инсайдер", "Бизнес", "Истории компаний и предпринимателей", 240000, 3.9, 25000, 380, 1.8},
	{"kino_vecher", "Кино вечер", "Развлечения", "Подборки фильмов и сериалов", 61000, 7.5, 6000, 290, 2.2},
	{"study_hub_ru", "Учёба онлайн", "Образование", "Курсы, лайфхаки, экзамены", 42000, 8.1, 4500, 310, 4.0},
	{"sport_arena_ru", "Спорт Арена", "Спорт", "Результаты матчей и трансферы", 133000, 5.4, 14000, 350, 0.9},
	{"money_talks_ru", "Деньги и финансы", "Финансы", "Инвестиции и личные финансы", 88000, 4.4, 11000, 460, 2.7},
	{"gamezone_ru", "Игровая зона", "Игры", "Новости игр и киберспорта", 72000, 6.9, 7000, 270, 6.3},
}

// DemoChannels набор одобренных каналов для стенда
func DemoChannels(now time.Time) []*channelmodels.Channel {
	channels := make([]*channelmodels.Channel, 0, len(demoChannels))
	for i, d := range demoChannels {
		lastPost := now.Add(-time.Duration(i+1) * 6 * time.Hour)
		channels = append(channels, &channelmodels.Channel{
			Name:             d.name,
			Link:             "https://t.me/" + d.username,
			AvatarURL:        ptr(telegram.AvatarURL(d.username)),
			Category:         ptr(d.category),
			Language:         ptr("ru"),
			Country:          ptr("RU"),
			ShortDescription: ptr(d.description),
			Subscribers:      d.subscribers,
			ER:               ptr(d.er),
			PriceRub:         ptr(d.price),
			CPMRub:           ptr(d.cpm),
			Growth30d:        ptr(d.growth),
			LastPostAt:       &lastPost,
			Status:           channelmodels.StatusApproved,
		})
	}
	return channels
}

var demoCreatorNames = []string{
	"Анна Смирнова", "Илья Волков", "Мария Кузнецова", "Дмитрий Орлов",
	"Екатерина Лебедева", "Павел Соколов", "Ольга Морозова", "Никита Попов",
}

var demoTags = [][]string{
	{"tech", "gadgets"}, {"crypto", "defi"}, {"business", "startups"},
	{"movies", "series"}, {"education"}, {"sport", "football"},
	{"finance", "investing"}, {"games", "esports"},
}

// DemoCreator собирает n-ного демо-автора
func DemoCreator(n int) *creatormodels.CreateCreatorRequest {
	name := demoCreatorNames[n%len(demoCreatorNames)]
	if n >= len(demoCreatorNames) {
		name = fmt.Sprintf("%s %d", name, n/len(demoCreatorNames)+1)
	}
	d := demoChannels[n%len(demoChannels)]
	minPrice := d.price / 2
	maxPrice := d.price * 2

	return &creatormodels.CreateCreatorRequest{
		Name:     name,
		Bio:      ptr("Автор каналов: " + d.description),
		Category: ptr(d.category),
		Tags:     append([]string(nil), demoTags[n%len(demoTags)]...),
		Country:  ptr("RU"),
		Language: ptr("ru"),
		Pricing: &creatormodels.Pricing{
			MinPrice: &minPrice,
			MaxPrice: &maxPrice,
			Currency: creatormodels.DefaultCurrency,
		},
		Contacts: &creatormodels.Contacts{
			TgUsername: ptr(d.username + "_admin"),
		},
	}
}

func ptr[T any](v T) *T {
	return &v
}
