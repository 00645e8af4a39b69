package controllers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/askboard/askboard/config"
	"github.com/askboard/askboard/models"
	"github.com/askboard/askboard/utils"
)

// AuthController handles account registration and bearer-token sessions.
type AuthController struct {
	db *gorm.DB
}

// NewAuthController creates an AuthController.
func NewAuthController(db *gorm.DB) *AuthController {
	return &AuthController{db: db}
}

// Register creates a local account and logs it in immediately by returning
// a fresh token pair alongside the user.
func (a *AuthController) Register(ctx *gin.Context) {
	type request struct {
		Number        string `json:"number" binding:"required"`
		Username      string `json:"username" binding:"required"`
		Password      string `json:"password" binding:"required"`
		CaptchaID     string `json:"captcha_id"`
		CaptchaAnswer string `json:"captcha_answer"`
	}

	var req request
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40001, "invalid request payload")
		return
	}

	req.Number = strings.TrimSpace(req.Number)
	req.Username = utils.SanitizeText(req.Username)

	fields := map[string]string{}
	if req.Number == "" {
		fields["number"] = "member number is required"
	} else if l := len(req.Number); l > 32 {
		fields["number"] = "member number must be at most 32 characters"
	}
	if req.Username == "" {
		fields["username"] = "username is required"
	} else if l := len([]rune(req.Username)); l < 2 || l > 64 {
		fields["username"] = "username must be 2-64 characters"
	}
	if l := len(req.Password); l < 6 || l > 72 {
		fields["password"] = "password must be 6-72 characters"
	}
	if len(fields) > 0 {
		utils.ErrorFields(ctx, http.StatusBadRequest, 40002, "invalid registration data", fields)
		return
	}

	if config.Get().RegisterCaptchaEnabled {
		if !utils.VerifyCaptcha(strings.TrimSpace(req.CaptchaID), strings.TrimSpace(req.CaptchaAnswer)) {
			utils.Error(ctx, http.StatusBadRequest, 40003, "captcha mismatch or expired")
			return
		}
	}

	ip := ctx.ClientIP()
	if utils.RegistrationIsBanned(ip) {
		utils.Error(ctx, http.StatusTooManyRequests, 42920, "registration temporarily blocked, try again later")
		return
	}
	if !utils.RegistrationCooldownTry(ip) {
		utils.Error(ctx, http.StatusTooManyRequests, 42910, "too many requests, slow down")
		return
	}
	if !utils.RegistrationDailyLimitCheck(ip) {
		utils.Error(ctx, http.StatusTooManyRequests, 42921, "daily registration limit reached")
		return
	}

	var existing models.User
	if err := a.db.Where("number = ?", req.Number).First(&existing).Error; err == nil {
		utils.Error(ctx, http.StatusConflict, 40901, "member number already registered")
		return
	}
	if err := a.db.Where("username = ?", req.Username).First(&existing).Error; err == nil {
		utils.Error(ctx, http.StatusConflict, 40902, "username already taken")
		return
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50001, "failed to hash password")
		return
	}

	user := models.User{
		Number:       req.Number,
		Username:     req.Username,
		PasswordHash: hash,
		RegisterIP:   ip,
	}

	if err := a.db.Create(&user).Error; err != nil {
		fails := utils.RegistrationFailRecord(ip)
		if fails >= max(config.Get().RegisterFailedMaxPerIPPerHour, 1) {
			utils.RegistrationBan(ip)
		}
		// unique index races with the pre-checks above
		if strings.Contains(strings.ToLower(err.Error()), "unique") || strings.Contains(err.Error(), "1062") {
			utils.Error(ctx, http.StatusConflict, 40903, "number or username already registered")
			return
		}
		utils.Sugar.Errorf("create user: %v", err)
		utils.Error(ctx, http.StatusInternalServerError, 50002, "failed to create user")
		return
	}

	utils.RegistrationDailyIncrement(ip)

	pair, err := utils.GenerateTokenPair(user.ID, user.Username, user.IsStaff)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50003, "failed to generate token")
		return
	}

	utils.Respond(ctx, http.StatusCreated, 0, "success", gin.H{
		"access_token":  pair.AccessToken,
		"refresh_token": pair.RefreshToken,
		"user":          user,
	})
}

// Login verifies a member number and password and issues a token pair. The
// error is deliberately identical for an unknown number and a wrong password.
func (a *AuthController) Login(ctx *gin.Context) {
	type request struct {
		Number   string `json:"number" binding:"required"`
		Password string `json:"password" binding:"required"`
	}

	var req request
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40004, "invalid request payload")
		return
	}

	var user models.User
	if err := a.db.Where("number = ?", strings.TrimSpace(req.Number)).First(&user).Error; err != nil {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "invalid number or password")
		return
	}

	if !utils.CheckPassword(user.PasswordHash, req.Password) {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "invalid number or password")
		return
	}

	pair, err := utils.GenerateTokenPair(user.ID, user.Username, user.IsStaff)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50004, "failed to generate token")
		return
	}

	utils.Success(ctx, gin.H{
		"access_token":  pair.AccessToken,
		"refresh_token": pair.RefreshToken,
		"user":          user,
	})
}

// Refresh exchanges a valid refresh token for a new token pair. The used
// refresh token is blacklisted so it cannot be replayed.
func (a *AuthController) Refresh(ctx *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40005, "invalid request payload")
		return
	}

	token := strings.TrimSpace(req.RefreshToken)
	claims, err := utils.ParseTokenOfType(token, utils.TokenTypeRefresh)
	if err != nil {
		utils.Error(ctx, http.StatusUnauthorized, 40111, "invalid refresh token")
		return
	}
	if utils.IsTokenBlacklisted(token) {
		utils.Error(ctx, http.StatusUnauthorized, 40112, "refresh token revoked")
		return
	}

	var user models.User
	if err := a.db.First(&user, claims.UserID).Error; err != nil {
		utils.Error(ctx, http.StatusUnauthorized, 40113, "account no longer exists")
		return
	}

	pair, err := utils.GenerateTokenPair(user.ID, user.Username, user.IsStaff)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50005, "failed to generate token")
		return
	}

	expiresAt := time.Now().Add(time.Duration(config.Get().RefreshTokenHours) * time.Hour)
	if claims.RegisteredClaims.ExpiresAt != nil {
		expiresAt = claims.RegisteredClaims.ExpiresAt.Time
	}
	utils.BlacklistToken(token, expiresAt)

	utils.Success(ctx, gin.H{
		"access_token":  pair.AccessToken,
		"refresh_token": pair.RefreshToken,
	})
}

// Logout blacklists the presented access token until it expires.
func (a *AuthController) Logout(ctx *gin.Context) {
	authHeader := ctx.GetHeader("Authorization")
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 {
		utils.Error(ctx, http.StatusUnauthorized, 40107, "invalid authorization header")
		return
	}

	token := strings.TrimSpace(parts[1])
	claims, err := utils.ParseToken(token)
	if err != nil {
		utils.Error(ctx, http.StatusUnauthorized, 40105, "invalid token")
		return
	}

	expiresAt := time.Now().Add(time.Duration(config.Get().AccessTokenMinutes) * time.Minute)
	if claims.RegisteredClaims.ExpiresAt != nil {
		expiresAt = claims.RegisteredClaims.ExpiresAt.Time
	}

	utils.BlacklistToken(token, expiresAt)
	utils.Success(ctx, gin.H{"message": "logged out"})
}

// Captcha returns a fresh captcha id and base64 image (data URI).
func (a *AuthController) Captcha(ctx *gin.Context) {
	id, b64, err := utils.GenerateCaptcha()
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50060, "failed to generate captcha")
		return
	}
	utils.Success(ctx, gin.H{"id": id, "image": b64})
}

// Me returns the current authenticated user's information.
func (a *AuthController) Me(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40108, "unauthorized")
		return
	}

	var user models.User
	if err := a.db.First(&user, userID).Error; err != nil {
		utils.Error(ctx, http.StatusNotFound, 40401, "user not found")
		return
	}

	utils.Success(ctx, user)
}

// ListUsers returns paginated users. Staff only, since rows include the
// member number of everyone on the board.
func (a *AuthController) ListUsers(ctx *gin.Context) {
	if !isStaff(ctx) {
		utils.Error(ctx, http.StatusForbidden, 40301, "staff access required")
		return
	}

	page, pageSize := parsePagination(ctx.Query("page"), ctx.Query("page_size"))

	query := a.db.Model(&models.User{})
	if search := strings.TrimSpace(ctx.Query("search")); search != "" {
		query = query.Where("LOWER(username) LIKE ? OR number LIKE ?", "%"+strings.ToLower(search)+"%", "%"+search+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50006, "failed to count users")
		return
	}

	var users []models.User
	if err := query.Order("created_at DESC").Offset((page - 1) * pageSize).Limit(pageSize).Find(&users).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50007, "failed to retrieve users")
		return
	}

	utils.Success(ctx, gin.H{
		"items":      users,
		"pagination": paginationPayload(page, pageSize, total),
	})
}

// GetUserPublic returns public user info by ID, cached for an hour.
func (a *AuthController) GetUserPublic(ctx *gin.Context) {
	id, ok := parseUintParam(ctx, "id")
	if !ok {
		utils.Error(ctx, http.StatusBadRequest, 40050, "invalid user id")
		return
	}
	idStr := ctx.Param("id")

	if b, hit := utils.CacheGetBytes("cache:user:public:" + idStr); hit {
		ctx.Data(http.StatusOK, "application/json", b)
		return
	}

	var user models.User
	if err := a.db.First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40410, "user not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50050, "failed to get user")
		return
	}

	payload := publicUserPayload(user)
	wrapper := utils.JSONResponse{Code: 0, Message: "success", Data: payload}
	utils.CacheSetJSON("cache:user:public:"+idStr, wrapper, time.Hour)
	utils.Success(ctx, payload)
}

// publicUserPayload strips fields that only staff endpoints may expose.
func publicUserPayload(user models.User) gin.H {
	return gin.H{
		"id":         user.ID,
		"username":   user.Username,
		"created_at": user.CreatedAt,
	}
}
