package controllers

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/IndSumit07/SPass/src/db"
	"github.com/IndSumit07/SPass/src/lib/mailer"
	"github.com/IndSumit07/SPass/src/models"
	"github.com/IndSumit07/SPass/src/types"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

func generateJWT(user *models.User) (string, error) {
	claims := &types.Claims{
		Username: user.Email,
		Role:     user.Role,
		UID:      user.UID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   fmt.Sprint(user.ID),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(24 * time.Hour)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(os.Getenv("JWT_SECRET")))
}

func AuthRegister(ctx *gin.Context) {
	var body types.RegisterUserRequestBody
	if err := ctx.ShouldBindJSON(&body); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	d := db.GetDb()
	var existing models.User
	err := d.Where(&models.User{Email: body.Email}).First(&existing).Error
	if err == nil {
		ctx.JSON(http.StatusConflict, gin.H{"error": "An account with that email already exists"})
		return
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		log.Printf("Error checking for existing user: %s\n", err.Error())
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Something went wrong"})
		return
	}
	user := models.User{
		Name:  body.Fullname,
		Email: body.Email,
		UID:   uuid.NewString(),
	}
	if err := d.Create(&user).Error; err != nil {
		log.Printf("Error creating user: %s\n", err.Error())
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Something went wrong"})
		return
	}
	go mailer.SendWelcomeEmail(user.Name, user.Email)
	ctx.JSON(http.StatusCreated, gin.H{"success": true, "user": user})
}

func AuthLogin(ctx *gin.Context) {
	var body types.LoginRequestBody
	if err := ctx.ShouldBindJSON(&body); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	d := db.GetDb()
	var user models.User
	if err := d.Where(&models.User{Email: body.Email}).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": "Account not found"})
			return
		}
		log.Printf("Error loading user: %s\n", err.Error())
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Something went wrong"})
		return
	}
	token, err := generateJWT(&user)
	if err != nil {
		log.Printf("Error signing token: %s\n", err.Error())
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Something went wrong"})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"success": true, "token": token, "user": user})
}
