package domain

type ConnManager interface {
	SyncAPI() ProviderSyncAPI
	NewStreamClient(marketID int, listener StreamListener) ProviderStreamClient
}
