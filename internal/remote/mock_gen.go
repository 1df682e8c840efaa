// internal/remote/mock_gen.go
package remote

//go:generate mockgen -source=./client.go -destination=../mocks/mock_remote_client.go -package=mocks Client
