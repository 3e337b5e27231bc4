package negotiation

import (
	"campusconnect/internal/app/commands"
	"campusconnect/internal/app/dto"
	"campusconnect/internal/app/queries"
)

// Register binds every negotiation handler and returns the shared Rejecter
// for the saga and sweeper.
func Register(cmds *commands.Registry, qs *queries.Registry, deps Deps) *Rejecter {
	rejecter := &Rejecter{Deps: deps}

	commands.Register[InitiateConversationCommand, *ConversationResult](cmds, initiateConversationKey, &InitiateConversationHandler{Deps: deps})
	commands.Register[AcceptConversationCommand, *dto.Conversation](cmds, acceptConversationKey, &AcceptConversationHandler{Deps: deps})
	commands.Register[SendMessageCommand, *dto.Message](cmds, sendMessageKey, &SendMessageHandler{Deps: deps})
	commands.Register[InitiateSaleCommand, *ConversationResult](cmds, initiateSaleKey, &InitiateSaleHandler{Deps: deps})
	commands.Register[ConfirmSaleCommand, *ConfirmSaleResult](cmds, confirmSaleKey, &ConfirmSaleHandler{Deps: deps, Rejecter: rejecter})
	commands.Register[RateSellerCommand, *dto.SellerRating](cmds, rateSellerKey, &RateSellerHandler{Deps: deps})
	commands.Register[RejectCompetingCommand, *RejectCompetingResult](cmds, rejectCompetingKey, &RejectCompetingHandler{Rejecter: rejecter})

	queries.Register[GetMessagesQuery, dto.MessageList](qs, getMessagesKey, &GetMessagesHandler{Deps: deps})
	queries.Register[GetConversationsQuery, dto.ConversationList](qs, getConversationsKey, &GetConversationsHandler{Deps: deps})
	return rejecter
}
