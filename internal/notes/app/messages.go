package app

// Константы для сообщений logger.
const (
	LogNoteCreated               = "note created"
	LogNoteUpdated               = "note updated"
	LogNoteDeleted               = "note deleted"
	LogAttachmentAdded           = "attachment added"
	LogAttachmentRemoved         = "attachment removed"
	LogAttachmentUploadFailed    = "failed to upload attachment"
	LogAttachmentCleanupFailed   = "failed to delete attachment from storage"
	LogGrantSaved                = "share grant saved"
	LogGrantResponded            = "share grant answered"
	LogGrantRevoked              = "share grant revoked"
	LogGranteeLookupFailed       = "failed to resolve grantee"
	LogLinkIssued                = "share link issued"
	LogLinkRevoked               = "share link revoked"
	LogLinkExpired               = "share link expired"
	LogLinkTokenFailed           = "failed to generate link token"
	LogLinkCacheReadFailed       = "failed to read link projection from cache"
	LogLinkCacheWriteFailed      = "failed to write link projection to cache"
	LogLinkCacheInvalidateFailed = "failed to invalidate link projection"
	LogLinkCacheStale            = "cached link projection is stale"
	LogVersionCreated            = "version snapshot created"
	LogVersionRestored           = "note restored from version"
)

// Контекст ошибок операций.
const (
	errCtxCreateNote       = "create note"
	errCtxGetNote          = "get note"
	errCtxListNotes        = "list notes"
	errCtxUpdateNote       = "update note"
	errCtxDeleteNote       = "delete note"
	errCtxAddAttachment    = "add attachment"
	errCtxRemoveAttachment = "remove attachment"
	errCtxGrant            = "grant access"
	errCtxRespond          = "respond to grant"
	errCtxListShared       = "list shared notes"
	errCtxListGrants       = "list grants"
	errCtxRevoke           = "revoke grant"
	errCtxIssueLink        = "issue link"
	errCtxResolveLink      = "resolve link"
	errCtxRevokeLink       = "revoke link"
	errCtxSnapshot         = "snapshot note"
	errCtxListVersions     = "list versions"
	errCtxGetVersion       = "get version"
	errCtxRestore          = "restore version"
)
