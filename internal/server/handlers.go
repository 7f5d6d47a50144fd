package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/phasecast/phasecast/internal/models"
	"github.com/phasecast/phasecast/internal/prediction"
)

// predictRequest is the predict call's wire shape. Required numeric fields
// are pointers so an absent field is distinguishable from a legitimate zero;
// lh is optional (estimated when absent) and the stress and oxygen signals
// default to zero when the sensor pipeline omits them.
type predictRequest struct {
	UserID string `json:"user_id" binding:"required"`
	Date   string `json:"date" binding:"required"`

	RMSSDMean       *float64 `json:"rmssd_mean" binding:"required"`
	WristTempMean   *float64 `json:"wrist_temp_mean" binding:"required"`
	Estrogen        *float64 `json:"estrogen" binding:"required"`
	PDG             *float64 `json:"pdg" binding:"required"`
	LH              *float64 `json:"lh"`
	StressScoreMean *float64 `json:"stress_score_mean"`
	OxygenRatioMean *float64 `json:"oxygen_ratio_mean"`
	DayInStudy      *float64 `json:"day_in_study" binding:"required"`
}

func (r *predictRequest) reading() models.Reading {
	reading := models.Reading{
		RMSSDMean:     *r.RMSSDMean,
		WristTempMean: *r.WristTempMean,
		Estrogen:      *r.Estrogen,
		PDG:           *r.PDG,
		LH:            r.LH,
		DayInStudy:    *r.DayInStudy,
	}
	if r.StressScoreMean != nil {
		reading.StressScoreMean = *r.StressScoreMean
	}
	if r.OxygenRatioMean != nil {
		reading.OxygenRatioMean = *r.OxygenRatioMean
	}
	return reading
}

func (s *Server) handleRoot(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "phasecast",
		"features": []string{
			"historical tracking",
			"lh estimation",
			"cycle analytics",
		},
	})
}

func (s *Server) handleInfo(c *gin.Context) {
	meta := s.svc.Metadata()
	c.JSON(http.StatusOK, gin.H{
		"classes":               meta.Classes,
		"confidence_thresholds": meta.ConfidenceThresholds,
		"ensemble_weight":       meta.EnsembleWeight,
		"feature_count":         len(meta.Features),
	})
}

func (s *Server) handlePredict(c *gin.Context) {
	var req predictRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid request",
			"details": err.Error(),
		})
		return
	}

	result, err := s.svc.Predict(req.UserID, req.Date, req.reading())
	if err != nil {
		var verr *models.ValidationError
		if errors.As(err, &verr) {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "invalid request",
				"details": verr.Error(),
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "prediction failed",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, result)
}

func (s *Server) handleAnalytics(c *gin.Context) {
	userID := c.Param("user_id")

	stats, err := s.svc.Analytics(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "analytics failed",
			"details": err.Error(),
		})
		return
	}

	if stats.IsEmpty() {
		c.JSON(http.StatusOK, gin.H{
			"user_id":   userID,
			"message":   "Insufficient data. Need at least 7 days of history.",
			"analytics": gin.H{},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user_id":   userID,
		"analytics": stats,
	})
}

func (s *Server) handleHistory(c *gin.Context) {
	userID := c.Param("user_id")

	days := prediction.DefaultHistoryDays
	if raw := c.Query("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "invalid request",
				"details": "days must be a positive integer",
			})
			return
		}
		days = n
	}

	history, err := s.svc.History(userID, days)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "history lookup failed",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user_id":      userID,
		"history_days": len(history),
		"history":      history,
	})
}

func (s *Server) handleExport(c *gin.Context) {
	userID := c.Param("user_id")

	history, err := s.svc.Export(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "export failed",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user_id": userID,
		"entries": len(history),
		"history": history,
	})
}

func (s *Server) handleUsers(c *gin.Context) {
	users, err := s.svc.Users()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "user listing failed",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"users": users})
}

func (s *Server) handleDeleteUser(c *gin.Context) {
	userID := c.Param("user_id")

	deleted, err := s.svc.DeleteUser(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "delete failed",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user_id":         userID,
		"deleted_entries": deleted,
		"status":          "success",
	})
}
