package dto

// RegisterUserDTO is bound from the multipart register form; the avatar and
// coverImage files are read separately.
type RegisterUserDTO struct {
	FullName string `form:"fullName" json:"fullName"`
	Email    string `form:"email" json:"email"`
	Username string `form:"username" json:"username"`
	Password string `form:"password" json:"password"`
}

type LoginDTO struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RefreshTokenDTO struct {
	RefreshToken string `json:"refreshToken"`
}

type ChangePasswordDTO struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

type UpdateAccountDTO struct {
	FullName string `json:"fullName"`
	Email    string `json:"email"`
}
