package handler

// API is the full backend surface the dashboard proxies. The REST client
// implements it against the real monitoring service; the demo backend
// implements it in memory. Individual handlers depend only on the slice
// they use.
type API interface {
	monitorAPI
	configAPI
	telegramAPI
	logsAPI
	dataAPI
}
