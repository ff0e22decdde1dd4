package models

// Summary счётчики для панели администратора
type Summary struct {
	Draft    int64 `json:"draft"`
	Approved int64 `json:"approved"`
	Rejected int64 `json:"rejected"`
	Dead     int64 `json:"dead"`
	Creators int64 `json:"creators"`
}

// LinkCheckRequest параметры проверки ссылок
type LinkCheckRequest struct {
	Limit       int  `form:"limit" binding:"omitempty,min=1,max=500"`
	ReplaceDead bool `form:"replace_dead"`
}

// LinkCheckResult итог проверки: alive + dead == checked. Skipped не входят
// в checked, их проверить не удалось.
type LinkCheckResult struct {
	OK      bool `json:"ok"`
	Checked int  `json:"checked"`
	Alive   int  `json:"alive"`
	Dead    int  `json:"dead"`
	Skipped int  `json:"skipped,omitempty"`
}

type SeedResult struct {
	OK       bool `json:"ok"`
	Inserted int  `json:"inserted"`
	Updated  int  `json:"updated"`
}

type CreatorSeedRequest struct {
	Count int `form:"count" binding:"omitempty,min=1,max=100"`
}

type CreatorSeedResult struct {
	OK      bool `json:"ok"`
	Created int  `json:"created"`
}

// ImportRequest принимается и формой, и JSON
type ImportRequest struct {
	ListURL  string `json:"list_url" form:"list_url" binding:"required"`
	Category string `json:"category" form:"category" binding:"max=100"`
	Limit    int    `json:"limit" form:"limit" binding:"omitempty,min=1"`
}

type ImportResult struct {
	OK       bool `json:"ok"`
	Found    int  `json:"found"`
	Inserted int  `json:"inserted"`
	Updated  int  `json:"updated"`
}
