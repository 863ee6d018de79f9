package dto

type GuildURI struct {
	GuildID string `uri:"guild_id" binding:"required"`
}

type ChannelURI struct {
	GuildID   string `uri:"guild_id" binding:"required"`
	ChannelID string `uri:"channel_id" binding:"required"`
}

type ChannelQuery struct {
	ChannelID string `form:"channel_id"`
}

type PeriodQuery struct {
	Days int `form:"days" binding:"omitempty,min=1,max=365"`
}

type LeaderboardQuery struct {
	Category string `form:"category"`
	Limit    int    `form:"limit" binding:"omitempty,min=1,max=100"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
