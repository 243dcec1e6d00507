package model

type TwitterConfig struct {
	APIKey            string `json:"api_key"`
	APISecret         string `json:"api_secret"`
	AccessToken       string `json:"access_token"`
	AccessTokenSecret string `json:"access_token_secret"`
}

type TelegramDestination struct {
	ChatID      string `json:"chat_id"`
	Description string `json:"description,omitempty"`
}

type TelegramConfig struct {
	BotToken               string                `json:"bot_token"`
	ChannelID              string                `json:"channel_id"`
	EnableDirectMessages   bool                  `json:"enable_direct_messages"`
	IncludeTweetText       bool                  `json:"include_tweet_text"`
	ForwardingDestinations []TelegramDestination `json:"forwarding_destinations"`
}

type MonitoringConfig struct {
	CheckIntervalMinutes int      `json:"check_interval_minutes"`
	Usernames            []string `json:"usernames"`
	RegexPatterns        []string `json:"regex_patterns"`
	Keywords             []string `json:"keywords"`
}

// AppConfig mirrors the backend's configuration document. The gateway treats
// it as opaque apart from round-tripping it between the dashboard and the
// backend, so every field keeps the backend's wire names.
type AppConfig struct {
	Twitter    TwitterConfig    `json:"twitter"`
	Telegram   TelegramConfig   `json:"telegram"`
	Monitoring MonitoringConfig `json:"monitoring"`
}
