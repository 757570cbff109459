package messages

// Catalog keys. Every locale file must define all of them.
const (
	KeyStart = "start"
	KeyHelp  = "help"

	KeyMenuInvite   = "button.invite"
	KeyButtonCancel = "button.cancel"
	KeyButtonSkip   = "button.skip"
	KeyButtonSubmit = "button.submit"
	KeyButtonDelete = "button.delete"

	KeyButtonApprove = "button.approve"
	KeyButtonReject  = "button.reject"

	KeyEditTopic       = "button.edit.topic"
	KeyEditPlace       = "button.edit.place"
	KeyEditDatetime    = "button.edit.datetime"
	KeyEditContact     = "button.edit.contact"
	KeyEditDescription = "button.edit.description"
	KeyEditPhoto       = "button.edit.photo"

	KeyPromptTopic       = "prompt.topic"
	KeyPromptPlace       = "prompt.place"
	KeyPromptDatetime    = "prompt.datetime"
	KeyPromptContact     = "prompt.contact"
	KeyPromptDescription = "prompt.description"
	KeyPromptPhoto       = "prompt.photo"

	KeyRepromptTopic       = "reprompt.topic"
	KeyRepromptPlace       = "reprompt.place"
	KeyRepromptDatetime    = "reprompt.datetime"
	KeyRepromptContact     = "reprompt.contact"
	KeyRepromptDescription = "reprompt.description"
	KeyRepromptPhoto       = "reprompt.photo"

	KeyTooLongTopic       = "error.too_long.topic"
	KeyTooLongPlace       = "error.too_long.place"
	KeyTooLongContact     = "error.too_long.contact"
	KeyTooLongDescription = "error.too_long.description"
	KeyEmptyText          = "error.empty"
	KeyTextExpected       = "error.text_expected"
	KeyPlaceExpected      = "error.place_expected"
	KeyBadLocation        = "error.bad_location"
	KeyPhotoWrong         = "error.photo_wrong"
	KeyInternal           = "error.internal"
	KeyRateLimited        = "error.rate_limited"
	KeyForbidden          = "error.forbidden"
	KeyUnknownAction      = "error.unknown_action"

	KeyPreviewHeader  = "preview.header"
	KeySubmitted      = "submit.sent"
	KeyAlreadyPending = "submit.already_pending"
	KeyNotInPreview   = "submit.not_in_preview"
	KeyCancelled      = "cancel.done"
	KeyFallback       = "fallback"

	KeyPostPlace   = "post.place"
	KeyPostWhen    = "post.when"
	KeyPostContact = "post.contact"

	KeyEventsNone     = "events.none"
	KeyEventsStatus   = "events.status"
	KeyEventsDeleted  = "events.deleted"
	KeyEventsNotFound = "events.not_found"

	KeyStatusPending   = "status.pending"
	KeyStatusPublished = "status.published"
	KeyStatusRejected  = "status.rejected"

	KeyModPublished          = "moderation.published"
	KeyModNotFound           = "moderation.not_found"
	KeyModCommentPrompt      = "moderation.comment_prompt"
	KeyModCommentSent        = "moderation.comment_sent"
	KeyModCommentStale       = "moderation.comment_stale"
	KeyModCommentUndelivered = "moderation.comment_undelivered"
	KeyModPublishFailed      = "moderation.publish_failed"

	KeyAuthorPublished     = "author.published"
	KeyAuthorRejected      = "author.rejected"
	KeyAuthorRejectedVoice = "author.rejected_voice"

	KeyStats = "stats"

	KeyCmdStart    = "command.start"
	KeyCmdNew      = "command.new"
	KeyCmdCancel   = "command.cancel"
	KeyCmdMyEvents = "command.myevents"
	KeyCmdHelp     = "command.help"
	KeyCmdStats    = "command.stats"
)

// Keys lists every catalog key; the completeness test walks it.
var Keys = []string{
	KeyStart, KeyHelp,
	KeyMenuInvite, KeyButtonCancel, KeyButtonSkip, KeyButtonSubmit, KeyButtonDelete,
	KeyButtonApprove, KeyButtonReject,
	KeyEditTopic, KeyEditPlace, KeyEditDatetime, KeyEditContact, KeyEditDescription, KeyEditPhoto,
	KeyPromptTopic, KeyPromptPlace, KeyPromptDatetime, KeyPromptContact, KeyPromptDescription, KeyPromptPhoto,
	KeyRepromptTopic, KeyRepromptPlace, KeyRepromptDatetime, KeyRepromptContact, KeyRepromptDescription, KeyRepromptPhoto,
	KeyTooLongTopic, KeyTooLongPlace, KeyTooLongContact, KeyTooLongDescription,
	KeyEmptyText, KeyTextExpected, KeyPlaceExpected, KeyBadLocation, KeyPhotoWrong,
	KeyInternal, KeyRateLimited, KeyForbidden, KeyUnknownAction,
	KeyPreviewHeader, KeySubmitted, KeyAlreadyPending, KeyNotInPreview, KeyCancelled, KeyFallback,
	KeyPostPlace, KeyPostWhen, KeyPostContact,
	KeyEventsNone, KeyEventsStatus, KeyEventsDeleted, KeyEventsNotFound,
	KeyStatusPending, KeyStatusPublished, KeyStatusRejected,
	KeyModPublished, KeyModNotFound, KeyModCommentPrompt, KeyModCommentSent, KeyModCommentStale,
	KeyModCommentUndelivered, KeyModPublishFailed,
	KeyAuthorPublished, KeyAuthorRejected, KeyAuthorRejectedVoice,
	KeyStats,
	KeyCmdStart, KeyCmdNew, KeyCmdCancel, KeyCmdMyEvents, KeyCmdHelp, KeyCmdStats,
}
