package handler

import (
	"pingline/internal/usecase"
)

var (
	authHandler     *AuthHandler
	userHandler     *UserHandler
	chatroomHandler *ChatroomHandler
	messageHandler  *MessageHandler
)

func Setup(
	authUseCase *usecase.AuthUseCase,
	userUseCase *usecase.UserUseCase,
	chatroomUseCase *usecase.ChatroomUseCase,
	messageUseCase *usecase.MessageUseCase,
) {
	authHandler = NewAuthHandler(authUseCase)
	userHandler = NewUserHandler(userUseCase)
	chatroomHandler = NewChatroomHandler(chatroomUseCase)
	messageHandler = NewMessageHandler(messageUseCase)
}

func GetAuthHandler() *AuthHandler {
	return authHandler
}

func GetUserHandler() *UserHandler {
	return userHandler
}

func GetChatroomHandler() *ChatroomHandler {
	return chatroomHandler
}

func GetMessageHandler() *MessageHandler {
	return messageHandler
}
