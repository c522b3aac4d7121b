package usecase

import "telegram-contest-bot/internal/conversation"

// Flow groups.
const (
	GroupMain         = "main"
	GroupRegistration = "registration"
	GroupProfileEdit  = "profile_edit"
	GroupThemeSelect  = "theme_select"
	GroupThemeCreate  = "theme_create"
	GroupLink         = "link"
)

var (
	StateBeforeRegistration = conversation.S(GroupMain, "before_registration")
	StateAfterRegistration  = conversation.S(GroupMain, "after_registration")

	StateRegName             = conversation.S(GroupRegistration, "name")
	StateRegSchool           = conversation.S(GroupRegistration, "school")
	StateRegPhone            = conversation.S(GroupRegistration, "phone")
	StateRegMentorName       = conversation.S(GroupRegistration, "mentor_name")
	StateRegMentorRole       = conversation.S(GroupRegistration, "mentor_role")
	StateRegMentorPost       = conversation.S(GroupRegistration, "mentor_post")
	StateRegMentorCustomRole = conversation.S(GroupRegistration, "mentor_custom_role")
	StateRegMail             = conversation.S(GroupRegistration, "mail")
	StateRegVerify           = conversation.S(GroupRegistration, "verify")

	StateEditChooseField  = conversation.S(GroupProfileEdit, "choose_field")
	StateEditWaitingValue = conversation.S(GroupProfileEdit, "waiting_value")

	StateThemeConfirm = conversation.S(GroupThemeSelect, "confirm")

	StateThemeTitle     = conversation.S(GroupThemeCreate, "title")
	StateThemeTechnique = conversation.S(GroupThemeCreate, "technique")

	StateLinkWaiting = conversation.S(GroupLink, "waiting")
)

// InitialState is where a never-seen user starts.
var InitialState = StateBeforeRegistration

// NewStateRegistry returns every state the bot can be in.
func NewStateRegistry() *conversation.Registry {
	return conversation.NewRegistry(
		StateBeforeRegistration, StateAfterRegistration,
		StateRegName, StateRegSchool, StateRegPhone, StateRegMentorName, StateRegMentorRole,
		StateRegMentorPost, StateRegMentorCustomRole, StateRegMail, StateRegVerify,
		StateEditChooseField, StateEditWaitingValue,
		StateThemeConfirm,
		StateThemeTitle, StateThemeTechnique,
		StateLinkWaiting,
	)
}

// Scratch keys.
const (
	keyNickname   = "nickname"
	keyFullName   = "full_name"
	keySchool     = "school"
	keyPhone      = "phone"
	keyMentorName = "mentor_name"
	keyMentorRole = "mentor_role"
	keyMentorPost = "mentor_post"
	keyMail       = "mail"
	keyThemeID    = "theme_id"
	keyThemeTitle = "theme_title"
	keyEditField  = "edit_field"
)

// Callback payloads.
const (
	cbRegYes = "reg:yes"
	cbRegNo  = "reg:no"

	cbRolePrefix = "role:"

	cbMailChange = "mail:change"
	cbMailResend = "mail:resend"

	cbPagePrefix = "pg:"

	cbMaterialNoLink = "material:nolink:"

	cbThemeChoose  = "theme:choose:"
	cbThemeConfirm = "theme:confirm:"
	cbThemeCustom  = "theme:custom"
	cbThemeCancel  = "theme:cancel"

	cbLinkCancel = "link:cancel"

	cbProfileEdit = "profile:edit"
	cbEditPrefix  = "edit:"
	cbEditCancel  = "edit:cancel"
)
