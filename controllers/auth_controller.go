package controllers

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/crypto/bcrypt"

	"github.com/abilsmall/marketplace_backend/middleware"
	"github.com/abilsmall/marketplace_backend/models"
	"github.com/abilsmall/marketplace_backend/services"
	"github.com/abilsmall/marketplace_backend/utils"
)

// AuthController contains authentication logic
type AuthController struct {
	DB       *mongo.Client
	Redis    *redis.Client
	logger   *log.Logger
	referral *services.ReferralService
}

// NewAuthController creates a new auth controller
func NewAuthController(db *mongo.Client, redisClient *redis.Client) *AuthController {
	return &AuthController{
		DB:       db,
		Redis:    redisClient,
		logger:   log.New(os.Stdout, "[AUTH] ", log.LstdFlags),
		referral: services.NewReferralService(db),
	}
}

const otpTTL = 15 * time.Minute

// Signup registers a new buyer account, sends a verification OTP, and
// remembers the referrer (if a valid code was supplied) so the reward can be
// credited once the account is verified.
func (ac *AuthController) Signup(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var req models.SignupRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid request body",
		})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: err.Error(),
		})
	}

	email, err := utils.SanitizeEmail(req.Email)
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid email address",
		})
	}

	usersColl := ac.DB.Database(dbName()).Collection("users")

	count, err := usersColl.CountDocuments(ctx, bson.M{"email": email})
	if err != nil {
		ac.logger.Printf("Failed to check existing email: %v", err)
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to process signup",
		})
	}
	if count > 0 {
		return c.JSON(http.StatusConflict, models.Response{
			Status:  http.StatusConflict,
			Message: "An account with this email already exists",
		})
	}

	// An invalid referral code is a hard error so the buyer can fix the typo
	// instead of silently losing the reward.
	var referrer *models.User
	if req.ReferralCode != "" {
		referrer, err = ac.referral.ResolveCode(ctx, req.ReferralCode)
		if err != nil {
			if services.IsNotFound(err) {
				return c.JSON(http.StatusBadRequest, models.Response{
					Status:  http.StatusBadRequest,
					Message: "Unknown referral code",
				})
			}
			ac.logger.Printf("Failed to resolve referral code: %v", err)
			return c.JSON(http.StatusInternalServerError, models.Response{
				Status:  http.StatusInternalServerError,
				Message: "Failed to process signup",
			})
		}
	}

	passwordHash, err := utils.HashPassword(req.Password)
	if err != nil {
		ac.logger.Printf("Failed to hash password: %v", err)
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to process signup",
		})
	}

	referralCode, err := utils.GenerateReferralCode()
	if err != nil {
		ac.logger.Printf("Failed to generate referral code: %v", err)
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to process signup",
		})
	}

	phone := ""
	if req.Phone != "" {
		phone, err = utils.SanitizePhone(req.Phone)
		if err != nil {
			return c.JSON(http.StatusBadRequest, models.Response{
				Status:  http.StatusBadRequest,
				Message: "Invalid phone number",
			})
		}
	}

	user := models.User{
		Username:     utils.SanitizeInput(req.Username),
		Email:        email,
		Phone:        phone,
		PasswordHash: passwordHash,
		Role:         models.RoleBuyer,
		ReferralCode: referralCode,
		NotifyEmail:  true,
		CreatedAt:    time.Now(),
	}
	res, err := usersColl.InsertOne(ctx, user)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return c.JSON(http.StatusConflict, models.Response{
				Status:  http.StatusConflict,
				Message: "An account with this email already exists",
			})
		}
		ac.logger.Printf("Failed to create user: %v", err)
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to create account",
		})
	}
	userID, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		ac.logger.Printf("Unexpected inserted ID type %T", res.InsertedID)
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to create account",
		})
	}

	otp, err := utils.GenerateSecureOTP()
	if err != nil {
		ac.logger.Printf("Failed to generate OTP: %v", err)
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to send verification code",
		})
	}
	otpHash, err := bcrypt.GenerateFromPassword([]byte(otp), bcrypt.DefaultCost)
	if err != nil {
		ac.logger.Printf("Failed to hash OTP: %v", err)
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to send verification code",
		})
	}

	verification := models.OtpVerification{
		UserID:    userID,
		OtpHash:   string(otpHash),
		ExpiresAt: time.Now().Add(otpTTL),
		CreatedAt: time.Now(),
	}
	if referrer != nil {
		verification.ReferrerID = &referrer.ID
	}
	if _, err := ac.DB.Database(dbName()).Collection("otp_verifications").InsertOne(ctx, verification); err != nil {
		ac.logger.Printf("Failed to store OTP: %v", err)
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to send verification code",
		})
	}

	go func() {
		body := fmt.Sprintf("Your verification code is %s. It expires in %d minutes.", otp, int(otpTTL.Minutes()))
		if err := utils.SendNotificationEmail(email, "Verify your account", body); err != nil {
			log.Printf("Failed to send OTP email to %s: %v", email, err)
		}
	}()

	ac.logger.Printf("New signup %s (%s)", user.Username, userID.Hex())
	return c.JSON(http.StatusCreated, models.Response{
		Status:  http.StatusCreated,
		Message: "Account created. Check your email for the verification code.",
	})
}

// VerifyOTP completes registration. A valid code marks the account verified
// and, when the signup carried a referral, credits the referrer's tokens.
func (ac *AuthController) VerifyOTP(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var req models.VerifyOTPRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid request body",
		})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: err.Error(),
		})
	}

	email, err := utils.SanitizeEmail(req.Email)
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid email address",
		})
	}

	db := ac.DB.Database(dbName())

	var user models.User
	if err := db.Collection("users").FindOne(ctx, bson.M{"email": email}).Decode(&user); err != nil {
		return c.JSON(http.StatusNotFound, models.Response{
			Status:  http.StatusNotFound,
			Message: "Account not found",
		})
	}
	if user.IsVerified {
		return c.JSON(http.StatusOK, models.Response{
			Status:  http.StatusOK,
			Message: "Account already verified",
		})
	}

	if ac.Redis != nil {
		if err := utils.ValidateOTPAttempts(ctx, user.ID.Hex(), ac.Redis); err != nil {
			return c.JSON(http.StatusTooManyRequests, models.Response{
				Status:  http.StatusTooManyRequests,
				Message: "Too many verification attempts, try again later",
			})
		}
	}

	var verification models.OtpVerification
	err = db.Collection("otp_verifications").FindOne(ctx, bson.M{"userId": user.ID}).Decode(&verification)
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "No pending verification for this account",
		})
	}
	if time.Now().After(verification.ExpiresAt) {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Verification code expired, request a new one",
		})
	}
	if bcrypt.CompareHashAndPassword([]byte(verification.OtpHash), []byte(req.OTP)) != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid verification code",
		})
	}

	if _, err := db.Collection("users").UpdateOne(ctx,
		bson.M{"_id": user.ID},
		bson.M{"$set": bson.M{"isVerified": true}},
	); err != nil {
		ac.logger.Printf("Failed to mark user verified: %v", err)
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to verify account",
		})
	}
	if _, err := db.Collection("otp_verifications").DeleteOne(ctx, bson.M{"_id": verification.ID}); err != nil {
		ac.logger.Printf("Failed to delete used OTP: %v", err)
	}

	if verification.ReferrerID != nil {
		if err := ac.referral.RewardVerification(ctx, *verification.ReferrerID, user.ID); err != nil {
			// The account is verified either way; the reward is best effort here
			// and the unique index keeps a retry safe.
			ac.logger.Printf("Failed to credit referral reward: %v", err)
		} else {
			utils.NotifyUser(ac.DB, *verification.ReferrerID, "Referral reward",
				fmt.Sprintf("You earned %d tokens: %s verified their account", utils.ReferralRewardTokens, user.Username),
				"referral_reward", nil)
		}
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Account verified, you can now log in",
	})
}

// Login authenticates a verified account and issues JWTs.
func (ac *AuthController) Login(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var req models.LoginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid request body",
		})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: err.Error(),
		})
	}

	email, err := utils.SanitizeEmail(req.Email)
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid email address",
		})
	}

	var user models.User
	err = ac.DB.Database(dbName()).Collection("users").FindOne(ctx, bson.M{"email": email}).Decode(&user)
	if err != nil || !utils.CheckPassword(user.PasswordHash, req.Password) {
		return c.JSON(http.StatusUnauthorized, models.Response{
			Status:  http.StatusUnauthorized,
			Message: "Invalid email or password",
		})
	}
	if !user.IsVerified {
		return c.JSON(http.StatusForbidden, models.Response{
			Status:  http.StatusForbidden,
			Message: "Account not verified, check your email for the verification code",
		})
	}

	accessToken, refreshToken, err := middleware.GenerateJWT(user.ID.Hex(), user.Email, user.Role)
	if err != nil {
		ac.logger.Printf("Failed to generate tokens: %v", err)
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to log in",
		})
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Login successful",
		Data: map[string]interface{}{
			"accessToken":  accessToken,
			"refreshToken": refreshToken,
			"user":         user,
		},
	})
}

// GetProfile returns the authenticated user's account.
func (ac *AuthController) GetProfile(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	userID, err := middleware.ExtractUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, models.Response{
			Status:  http.StatusUnauthorized,
			Message: "Invalid token",
		})
	}
	oid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid user ID",
		})
	}

	var user models.User
	if err := ac.DB.Database(dbName()).Collection("users").FindOne(ctx, bson.M{"_id": oid}).Decode(&user); err != nil {
		return c.JSON(http.StatusNotFound, models.Response{
			Status:  http.StatusNotFound,
			Message: "User not found",
		})
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Profile retrieved",
		Data:    user,
	})
}

// RegisterFCMToken stores the device token used for push notifications.
func (ac *AuthController) RegisterFCMToken(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var req struct {
		Token string `json:"token" validate:"required"`
	}
	if err := c.Bind(&req); err != nil || req.Token == "" {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Token is required",
		})
	}

	userID, err := middleware.ExtractUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, models.Response{
			Status:  http.StatusUnauthorized,
			Message: "Invalid token",
		})
	}
	oid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid user ID",
		})
	}

	_, err = ac.DB.Database(dbName()).Collection("users").UpdateOne(ctx,
		bson.M{"_id": oid},
		bson.M{"$set": bson.M{"fcmToken": req.Token}},
	)
	if err != nil {
		ac.logger.Printf("Failed to store FCM token: %v", err)
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to register device",
		})
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Device registered",
	})
}
