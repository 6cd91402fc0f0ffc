package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"gorm.io/gorm"

	"github.com/leyuan/points-mall/config"
	"github.com/leyuan/points-mall/models"
	"github.com/leyuan/points-mall/services"
	"github.com/leyuan/points-mall/utils"
)

// AuthController handles phone-code login, WeChat OAuth, and session endpoints.
type AuthController struct {
	db *gorm.DB
}

// NewAuthController creates a new controller instance.
func NewAuthController(db *gorm.DB) *AuthController {
	return &AuthController{db: db}
}

var phonePattern = regexp.MustCompile(`^1[3-9]\d{9}$`)

type sendCodeRequest struct {
	Phone string `json:"phone" binding:"required"`
}

// SendSMSCode issues a login verification code to a phone number.
func (a *AuthController) SendSMSCode(ctx *gin.Context) {
	var req sendCodeRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40001, "invalid request payload")
		return
	}
	phone := strings.TrimSpace(req.Phone)
	if !phonePattern.MatchString(phone) {
		utils.Error(ctx, http.StatusBadRequest, 40010, "手机号格式不正确")
		return
	}

	cfg := config.Get()
	if !utils.SMSIPHourlyRecord(ctx.ClientIP()) {
		utils.Error(ctx, http.StatusTooManyRequests, 42910, "发送过于频繁，请稍后再试")
		return
	}
	if !utils.SMSDailyLimitCheck(phone) {
		utils.Error(ctx, http.StatusTooManyRequests, 42911, "今日发送次数已达上限")
		return
	}
	if !utils.SMSCooldownTrySet(phone, time.Duration(cfg.SMSCooldownSec)*time.Second) {
		utils.Error(ctx, http.StatusTooManyRequests, 42912, "发送过于频繁，请稍后再试")
		return
	}

	code := utils.GenerateVerificationCode(6)
	utils.SaveSMSCode(phone, code, time.Duration(cfg.SMSCodeTTLSec)*time.Second)
	if err := utils.SendSMSCode(phone, code); err != nil {
		utils.Sugar.Errorf("send sms to %s failed: %v", phone, err)
		utils.Error(ctx, http.StatusInternalServerError, 50010, "短信发送失败")
		return
	}
	utils.SMSDailyIncrement(phone)

	utils.Success(ctx, gin.H{"message": "验证码已发送"})
}

type loginRequest struct {
	Phone      string `json:"phone" binding:"required"`
	Code       string `json:"code" binding:"required"`
	InviteCode string `json:"invite_code"`
}

// Login verifies a phone code and signs the user in, registering on first
// login. A valid invite code on registration back-links the referrer and
// credits the referrer's invite reward.
func (a *AuthController) Login(ctx *gin.Context) {
	var req loginRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40001, "invalid request payload")
		return
	}
	phone := strings.TrimSpace(req.Phone)
	if !phonePattern.MatchString(phone) {
		utils.Error(ctx, http.StatusBadRequest, 40010, "手机号格式不正确")
		return
	}

	if !utils.VerifyAndConsumeSMSCode(phone, strings.TrimSpace(req.Code)) {
		utils.Error(ctx, http.StatusBadRequest, 40011, "验证码错误或已过期")
		return
	}

	user, created, err := a.findOrCreatePhoneUser(phone, strings.TrimSpace(req.InviteCode))
	if err != nil {
		respondServiceError(ctx, err, 50011, "登录失败")
		return
	}
	if !user.IsActive {
		utils.Error(ctx, http.StatusForbidden, 40310, "账号已被禁用")
		return
	}

	token, err := utils.GenerateToken(user.ID, utils.ActorUser, "", 72*time.Hour)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50004, "failed to generate token")
		return
	}

	utils.Success(ctx, gin.H{
		"token":      token,
		"user":       userPayload(*user),
		"registered": created,
	})
}

func (a *AuthController) findOrCreatePhoneUser(phone, inviteCode string) (*models.User, bool, error) {
	var user models.User
	err := a.db.Where("phone = ?", phone).First(&user).Error
	if err == nil {
		return &user, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}

	var referrer *models.User
	if inviteCode != "" {
		referrer, err = services.FindByInviteCode(a.db, inviteCode)
		if err != nil {
			if errors.Is(err, services.ErrNotFound) {
				return nil, false, fmt.Errorf("%w: invalid invite code", services.ErrValidationFailed)
			}
			return nil, false, err
		}
	}

	cfg := config.Get()
	err = a.db.Transaction(func(tx *gorm.DB) error {
		code, txErr := services.AllocateInviteCode(tx)
		if txErr != nil {
			return txErr
		}

		user = models.User{
			Phone:      &phone,
			Nickname:   "用户" + phone[len(phone)-4:],
			InviteCode: code,
			IsActive:   true,
		}
		if referrer != nil {
			user.ReferrerID = &referrer.ID
		}
		if txErr := tx.Create(&user).Error; txErr != nil {
			return txErr
		}

		if referrer != nil && cfg.InviteRewardPoints > 0 {
			refID := user.ID
			_, txErr := services.AppendLedger(tx, services.LedgerEntry{
				UserID:      referrer.ID,
				Points:      cfg.InviteRewardPoints,
				Kind:        models.LedgerKindEarn,
				Source:      models.SourceInvite,
				ReferenceID: &refID,
				Remark:      "邀请好友注册",
			})
			return txErr
		}
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return &user, true, nil
}

// WeChatRedirect generates the WeChat authorization URL.
func (a *AuthController) WeChatRedirect(ctx *gin.Context) {
	cfg := config.Get()
	if cfg.WxAppID == "" {
		utils.Error(ctx, http.StatusBadRequest, 40004, "wechat login not configured")
		return
	}

	state := uuid.NewString()
	utils.SaveState(state, 10*time.Minute)

	oc := a.wechatOAuthConfig()
	url := oc.AuthCodeURL(state,
		oauth2.SetAuthURLParam("appid", cfg.WxAppID),
		oauth2.SetAuthURLParam("scope", "snsapi_login"),
	)
	utils.Success(ctx, gin.H{"authorization_url": url, "state": state})
}

// WeChatCallback exchanges the authorization code for a WeChat identity and issues a JWT.
func (a *AuthController) WeChatCallback(ctx *gin.Context) {
	code := ctx.Query("code")
	state := ctx.Query("state")
	if code == "" || state == "" {
		utils.Error(ctx, http.StatusBadRequest, 40005, "missing code or state")
		return
	}
	if !utils.ConsumeState(state) {
		utils.Error(ctx, http.StatusBadRequest, 40006, "invalid or expired state")
		return
	}

	cfg := config.Get()
	oc := a.wechatOAuthConfig()
	token, err := oc.Exchange(context.Background(), code,
		oauth2.SetAuthURLParam("appid", cfg.WxAppID),
		oauth2.SetAuthURLParam("secret", cfg.WxAppSecret),
	)
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40007, "failed to exchange code")
		return
	}

	openID, _ := token.Extra("openid").(string)
	if openID == "" {
		utils.Error(ctx, http.StatusBadRequest, 40007, "wechat response missing openid")
		return
	}

	info, err := fetchWeChatUser(token.AccessToken, openID)
	if err != nil {
		utils.Sugar.Warnf("fetch wechat userinfo failed: %v", err)
		info = &wechatUser{OpenID: openID}
	}

	user, err := a.findOrCreateWxUser(info)
	if err != nil {
		respondServiceError(ctx, err, 50006, "failed to persist user")
		return
	}
	if !user.IsActive {
		utils.Error(ctx, http.StatusForbidden, 40310, "账号已被禁用")
		return
	}

	jwtToken, err := utils.GenerateToken(user.ID, utils.ActorUser, "", 72*time.Hour)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50004, "failed to generate token")
		return
	}

	utils.Success(ctx, gin.H{"token": jwtToken, "user": userPayload(*user)})
}

func (a *AuthController) wechatOAuthConfig() *oauth2.Config {
	cfg := config.Get()
	return &oauth2.Config{
		ClientID:     cfg.WxAppID,
		ClientSecret: cfg.WxAppSecret,
		RedirectURL:  cfg.OAuthRedirectBase + "/api/v1/auth/wechat/callback",
		Endpoint: oauth2.Endpoint{
			AuthURL:  "https://open.weixin.qq.com/connect/qrconnect",
			TokenURL: "https://api.weixin.qq.com/sns/oauth2/access_token",
		},
	}
}

type wechatUser struct {
	OpenID   string `json:"openid"`
	Nickname string `json:"nickname"`
	Avatar   string `json:"headimgurl"`
}

func fetchWeChatUser(accessToken, openID string) (*wechatUser, error) {
	url := fmt.Sprintf("https://api.weixin.qq.com/sns/userinfo?access_token=%s&openid=%s", accessToken, openID)
	resp, err := http.Get(url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var info wechatUser
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, err
	}
	if info.OpenID == "" {
		return nil, errors.New("wechat userinfo missing openid")
	}
	return &info, nil
}

func (a *AuthController) findOrCreateWxUser(info *wechatUser) (*models.User, error) {
	var user models.User
	err := a.db.Where("wx_open_id = ?", info.OpenID).First(&user).Error
	if err == nil {
		return &user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	err = a.db.Transaction(func(tx *gorm.DB) error {
		code, txErr := services.AllocateInviteCode(tx)
		if txErr != nil {
			return txErr
		}
		nickname := info.Nickname
		if nickname == "" {
			nickname = "微信用户"
		}
		openID := info.OpenID
		user = models.User{
			WxOpenID:   &openID,
			Nickname:   utils.Sanitize(nickname),
			AvatarURL:  info.Avatar,
			InviteCode: code,
			IsActive:   true,
		}
		return tx.Create(&user).Error
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Logout invalidates the token by blacklisting it until expiration.
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

	expiresAt := time.Now().Add(72 * time.Hour)
	if claims.RegisteredClaims.ExpiresAt != nil {
		expiresAt = claims.RegisteredClaims.ExpiresAt.Time
	}

	utils.BlacklistToken(token, expiresAt)
	utils.Success(ctx, gin.H{"message": "logged out"})
}

// Me returns the current user's profile.
func (a *AuthController) Me(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	var user models.User
	if err := a.db.First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40410, "user not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50031, "failed to load user")
		return
	}

	utils.Success(ctx, userPayload(user))
}

type updateProfileRequest struct {
	Nickname  *string `json:"nickname"`
	AvatarURL *string `json:"avatar_url"`
}

// UpdateProfile updates the caller's nickname or avatar.
func (a *AuthController) UpdateProfile(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	var req updateProfileRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40001, "invalid request payload")
		return
	}

	updates := map[string]interface{}{}
	if req.Nickname != nil {
		name := strings.TrimSpace(utils.Sanitize(*req.Nickname))
		if name == "" || len(name) > 64 {
			utils.Error(ctx, http.StatusBadRequest, 40012, "昵称不合法")
			return
		}
		updates["nickname"] = name
	}
	if req.AvatarURL != nil {
		updates["avatar_url"] = strings.TrimSpace(*req.AvatarURL)
	}
	if len(updates) == 0 {
		utils.Error(ctx, http.StatusBadRequest, 40013, "nothing to update")
		return
	}

	if err := a.db.Model(&models.User{}).Where("id = ?", userID).Updates(updates).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50012, "failed to update profile")
		return
	}

	utils.Success(ctx, gin.H{"message": "profile updated"})
}

// userPayload shapes a user for API responses; the phone number is masked.
func userPayload(user models.User) gin.H {
	return gin.H{
		"id":             user.ID,
		"phone":          user.MaskedPhone(),
		"nickname":       user.Nickname,
		"avatar_url":     user.AvatarURL,
		"points_balance": user.PointsBalance,
		"invite_code":    user.InviteCode,
		"created_at":     user.CreatedAt,
	}
}
