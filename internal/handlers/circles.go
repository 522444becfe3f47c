package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/mindbridge-app/mindbridge-backend/internal/database"
	"github.com/mindbridge-app/mindbridge-backend/internal/models"
	"github.com/mindbridge-app/mindbridge-backend/internal/services"
	"github.com/mindbridge-app/mindbridge-backend/pkg/apperrors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const maxCircleTags = 5

type CircleRequest struct {
	Title       string                  `json:"title"`
	Description string                  `json:"description"`
	Tags        []string                `json:"tags"`
	Visibility  models.CircleVisibility `json:"visibility"`
	CoverImage  string                  `json:"cover_image,omitempty"`
}

func (req *CircleRequest) validate() error {
	req.Title = strings.TrimSpace(req.Title)
	req.Description = strings.TrimSpace(req.Description)
	req.Tags = normalizeStringList(req.Tags)
	if req.Title == "" {
		return apperrors.Validation("Title is required")
	}
	if len(req.Tags) > maxCircleTags {
		return apperrors.Validation(fmt.Sprintf("At most %d tags allowed", maxCircleTags))
	}
	if req.Visibility == "" {
		req.Visibility = models.CirclePublic
	}
	if req.Visibility != models.CirclePublic && req.Visibility != models.CirclePrivate {
		return apperrors.Validation("Visibility must be public or private")
	}
	return nil
}

// CreateCircle creates a circle with the caller as its sole member and admin.
func CreateCircle(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireAuth(w, r)
	if !ok {
		return
	}

	var req CircleRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, err)
		return
	}

	now := time.Now().UTC()
	circle := models.Circle{
		CreatedAt:    now,
		UpdatedAt:    now,
		Title:        req.Title,
		Description:  req.Description,
		Tags:         req.Tags,
		Visibility:   req.Visibility,
		CoverImage:   req.CoverImage,
		Members:      []primitive.ObjectID{userID},
		Admins:       []primitive.ObjectID{userID},
		JoinRequests: []primitive.ObjectID{},
	}

	ctx, cancel := requestContext()
	defer cancel()

	result, err := database.DB.Collection("circles").InsertOne(ctx, &circle)
	if err != nil {
		writeError(w, apperrors.Wrap(apperrors.CodeInternal, "Failed to create circle", err))
		return
	}
	circle.ID = result.InsertedID.(primitive.ObjectID)

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"success": true,
		"message": "Circle created",
		"circle":  circle,
	})
}

// ListCircles returns public circles, optionally filtered by a title/description
// query or an exact tag.
func ListCircles(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireAuth(w, r); !ok {
		return
	}

	filter := bson.M{"visibility": models.CirclePublic}
	if q := strings.TrimSpace(r.URL.Query().Get("q")); q != "" {
		pattern := regexEscape(q)
		filter["$or"] = bson.A{
			bson.M{"title": bson.M{"$regex": pattern, "$options": "i"}},
			bson.M{"description": bson.M{"$regex": pattern, "$options": "i"}},
		}
	}
	if tag := strings.TrimSpace(r.URL.Query().Get("tag")); tag != "" {
		filter["tags"] = bson.M{"$regex": "^" + regexEscape(tag) + "$", "$options": "i"}
	}

	ctx, cancel := requestContext()
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := database.DB.Collection("circles").Find(ctx, filter, opts)
	if err != nil {
		writeError(w, apperrors.Wrap(apperrors.CodeInternal, "Failed to list circles", err))
		return
	}
	defer cursor.Close(ctx)

	circles := []models.Circle{}
	if err := cursor.All(ctx, &circles); err != nil {
		writeError(w, apperrors.Wrap(apperrors.CodeInternal, "Failed to read circles", err))
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"circles": circles,
	})
}

// RecommendedCircles ranks public circles the caller has not joined against
// the caller's interests.
func RecommendedCircles(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireAuth(w, r)
	if !ok {
		return
	}

	ctx, cancel := requestContext()
	defer cancel()

	var user models.User
	err := database.DB.Collection("users").FindOne(ctx, bson.M{"_id": userID}).Decode(&user)
	if err == mongo.ErrNoDocuments {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"circles": []models.Circle{},
		})
		return
	}
	if err != nil {
		writeError(w, apperrors.Wrap(apperrors.CodeInternal, "Failed to load user", err))
		return
	}

	cursor, err := database.DB.Collection("circles").Find(ctx, bson.M{
		"visibility": models.CirclePublic,
		"members":    bson.M{"$ne": userID},
	})
	if err != nil {
		writeError(w, apperrors.Wrap(apperrors.CodeInternal, "Failed to load circles", err))
		return
	}
	defer cursor.Close(ctx)

	var eligible []models.Circle
	if err := cursor.All(ctx, &eligible); err != nil {
		writeError(w, apperrors.Wrap(apperrors.CodeInternal, "Failed to read circles", err))
		return
	}

	ranked := services.RankCircles(eligible, user.Interests)

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"circles": ranked,
	})
}

// circleDetail is a circle with member identities resolved.
type circleDetail struct {
	models.Circle
	MemberDetails  []models.UserSummary `json:"member_details"`
	AdminDetails   []models.UserSummary `json:"admin_details"`
	RequestDetails []models.UserSummary `json:"request_details,omitempty"`
	IsMember       bool                 `json:"is_member"`
	IsAdmin        bool                 `json:"is_admin"`
	HasRequested   bool                 `json:"has_requested"`
}

// GetCircle returns one circle with resolved member, admin, and (for admins)
// pending-request identities.
func GetCircle(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireAuth(w, r)
	if !ok {
		return
	}

	circleID, err := parseObjectID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}

	ctx, cancel := requestContext()
	defer cancel()

	circle, err := loadCircle(ctx, circleID)
	if err != nil {
		writeError(w, err)
		return
	}

	detail := circleDetail{
		Circle:       *circle,
		IsMember:     circle.IsMember(userID),
		IsAdmin:      circle.IsAdmin(userID),
		HasRequested: containsObjectID(circle.JoinRequests, userID),
	}

	summaries, err := resolveUserSummaries(ctx, circle.Members)
	if err == nil {
		detail.MemberDetails = summaries
	}
	adminSummaries, err := resolveUserSummaries(ctx, circle.Admins)
	if err == nil {
		detail.AdminDetails = adminSummaries
	}
	if detail.IsAdmin {
		requestSummaries, err := resolveUserSummaries(ctx, circle.JoinRequests)
		if err == nil {
			detail.RequestDetails = requestSummaries
		}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"circle":  detail,
	})
}

// UpdateCircle lets a circle admin edit title, description, tags, visibility,
// and cover image.
func UpdateCircle(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireAuth(w, r)
	if !ok {
		return
	}

	circleID, err := parseObjectID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}

	var req CircleRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, err)
		return
	}

	ctx, cancel := requestContext()
	defer cancel()

	circle, err := loadCircle(ctx, circleID)
	if err != nil {
		writeError(w, err)
		return
	}
	if !circle.IsAdmin(userID) {
		writeError(w, apperrors.Forbidden("Only circle admins can edit the circle"))
		return
	}

	set := bson.M{
		"title":       req.Title,
		"description": req.Description,
		"tags":        req.Tags,
		"visibility":  req.Visibility,
		"updated_at":  time.Now().UTC(),
	}
	if req.CoverImage != "" {
		set["cover_image"] = req.CoverImage
	}

	if _, err := database.DB.Collection("circles").UpdateOne(ctx,
		bson.M{"_id": circleID}, bson.M{"$set": set}); err != nil {
		writeError(w, apperrors.Wrap(apperrors.CodeInternal, "Failed to update circle", err))
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Circle updated",
	})
}

// JoinCircle joins a public circle directly, or files a join request on a
// private one and notifies its admins.
func JoinCircle(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireAuth(w, r)
	if !ok {
		return
	}

	circleID, err := parseObjectID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}

	ctx, cancel := requestContext()
	defer cancel()

	circle, err := loadCircle(ctx, circleID)
	if err != nil {
		writeError(w, err)
		return
	}
	if circle.IsMember(userID) {
		writeError(w, apperrors.Conflict("You are already a member of this circle"))
		return
	}

	circles := database.DB.Collection("circles")

	if circle.Visibility == models.CirclePublic {
		// Atomic: two simultaneous joins cannot double-insert.
		if _, err := circles.UpdateOne(ctx, bson.M{"_id": circleID},
			bson.M{"$addToSet": bson.M{"members": userID}}); err != nil {
			writeError(w, apperrors.Wrap(apperrors.CodeInternal, "Failed to join circle", err))
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"message": "Joined circle",
		})
		return
	}

	if containsObjectID(circle.JoinRequests, userID) {
		writeError(w, apperrors.Conflict("Join request already pending"))
		return
	}

	if _, err := circles.UpdateOne(ctx, bson.M{"_id": circleID},
		bson.M{"$addToSet": bson.M{"join_requests": userID}}); err != nil {
		writeError(w, apperrors.Wrap(apperrors.CodeInternal, "Failed to request to join", err))
		return
	}

	requester, err := messaging.Users.Get(ctx, userID)
	requesterName := "Someone"
	if err == nil && requester != nil {
		requesterName = requester.DisplayName
	}
	for _, adminID := range circle.Admins {
		services.Notifications.EmitTo(ctx, adminID, string(models.ActionJoinRequest),
			fmt.Sprintf("%s requested to join %s", requesterName, circle.Title),
			models.JoinRequestMeta(circle.ID, circle.Title, userID, requesterName))
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Join request sent",
	})
}

// LeaveCircle removes the caller from members and admins.
func LeaveCircle(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireAuth(w, r)
	if !ok {
		return
	}

	circleID, err := parseObjectID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}

	ctx, cancel := requestContext()
	defer cancel()

	circle, err := loadCircle(ctx, circleID)
	if err != nil {
		writeError(w, err)
		return
	}
	if !circle.IsMember(userID) {
		writeError(w, apperrors.Validation("You are not a member of this circle"))
		return
	}

	if _, err := database.DB.Collection("circles").UpdateOne(ctx, bson.M{"_id": circleID},
		bson.M{"$pull": bson.M{"members": userID, "admins": userID}}); err != nil {
		writeError(w, apperrors.Wrap(apperrors.CodeInternal, "Failed to leave circle", err))
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Left circle",
	})
}

// ApproveJoinRequest moves a pending requester into members and notifies them.
func ApproveJoinRequest(w http.ResponseWriter, r *http.Request) {
	adminID, ok := requireAuth(w, r)
	if !ok {
		return
	}

	circleID, err := parseObjectID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	requesterID, err := parseObjectID(chi.URLParam(r, "userId"))
	if err != nil {
		writeError(w, err)
		return
	}

	ctx, cancel := requestContext()
	defer cancel()

	circle, err := loadCircle(ctx, circleID)
	if err != nil {
		writeError(w, err)
		return
	}
	if !circle.IsAdmin(adminID) {
		writeError(w, apperrors.Forbidden("Only circle admins can approve requests"))
		return
	}
	if !containsObjectID(circle.JoinRequests, requesterID) {
		writeError(w, apperrors.NotFound("No pending request from this user"))
		return
	}

	if _, err := database.DB.Collection("circles").UpdateOne(ctx, bson.M{"_id": circleID}, bson.M{
		"$addToSet": bson.M{"members": requesterID},
		"$pull":     bson.M{"join_requests": requesterID},
	}); err != nil {
		writeError(w, apperrors.Wrap(apperrors.CodeInternal, "Failed to approve request", err))
		return
	}

	services.Notifications.EmitTo(ctx, requesterID, string(models.ActionRequestApproved),
		fmt.Sprintf("Your request to join %s was approved", circle.Title),
		models.CircleMeta(models.ActionRequestApproved, circle.ID, circle.Title))

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Request approved",
	})
}

// RejectJoinRequest drops a pending request and notifies the requester.
func RejectJoinRequest(w http.ResponseWriter, r *http.Request) {
	adminID, ok := requireAuth(w, r)
	if !ok {
		return
	}

	circleID, err := parseObjectID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	requesterID, err := parseObjectID(chi.URLParam(r, "userId"))
	if err != nil {
		writeError(w, err)
		return
	}

	ctx, cancel := requestContext()
	defer cancel()

	circle, err := loadCircle(ctx, circleID)
	if err != nil {
		writeError(w, err)
		return
	}
	if !circle.IsAdmin(adminID) {
		writeError(w, apperrors.Forbidden("Only circle admins can reject requests"))
		return
	}
	if !containsObjectID(circle.JoinRequests, requesterID) {
		writeError(w, apperrors.NotFound("No pending request from this user"))
		return
	}

	if _, err := database.DB.Collection("circles").UpdateOne(ctx, bson.M{"_id": circleID},
		bson.M{"$pull": bson.M{"join_requests": requesterID}}); err != nil {
		writeError(w, apperrors.Wrap(apperrors.CodeInternal, "Failed to reject request", err))
		return
	}

	services.Notifications.EmitTo(ctx, requesterID, string(models.ActionRequestRejected),
		fmt.Sprintf("Your request to join %s was declined", circle.Title),
		models.CircleMeta(models.ActionRequestRejected, circle.ID, circle.Title))

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Request rejected",
	})
}

// RemoveMember removes a member from the circle. The last admin cannot be
// removed.
func RemoveMember(w http.ResponseWriter, r *http.Request) {
	adminID, ok := requireAuth(w, r)
	if !ok {
		return
	}

	circleID, err := parseObjectID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	memberID, err := parseObjectID(chi.URLParam(r, "userId"))
	if err != nil {
		writeError(w, err)
		return
	}

	ctx, cancel := requestContext()
	defer cancel()

	circle, err := loadCircle(ctx, circleID)
	if err != nil {
		writeError(w, err)
		return
	}
	if !circle.IsAdmin(adminID) {
		writeError(w, apperrors.Forbidden("Only circle admins can remove members"))
		return
	}
	if !circle.IsMember(memberID) {
		writeError(w, apperrors.NotFound("User is not a member of this circle"))
		return
	}
	if circle.IsAdmin(memberID) && len(circle.Admins) == 1 {
		writeError(w, apperrors.Validation("Cannot remove the last admin"))
		return
	}

	if _, err := database.DB.Collection("circles").UpdateOne(ctx, bson.M{"_id": circleID},
		bson.M{"$pull": bson.M{"members": memberID, "admins": memberID}}); err != nil {
		writeError(w, apperrors.Wrap(apperrors.CodeInternal, "Failed to remove member", err))
		return
	}

	services.Notifications.EmitTo(ctx, memberID, string(models.ActionRemovedFromCircle),
		fmt.Sprintf("You were removed from %s", circle.Title),
		models.CircleMeta(models.ActionRemovedFromCircle, circle.ID, circle.Title))

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Member removed",
	})
}

// PromoteMember makes a member an admin and notifies them.
func PromoteMember(w http.ResponseWriter, r *http.Request) {
	adminID, ok := requireAuth(w, r)
	if !ok {
		return
	}

	circleID, err := parseObjectID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	memberID, err := parseObjectID(chi.URLParam(r, "userId"))
	if err != nil {
		writeError(w, err)
		return
	}

	ctx, cancel := requestContext()
	defer cancel()

	circle, err := loadCircle(ctx, circleID)
	if err != nil {
		writeError(w, err)
		return
	}
	if !circle.IsAdmin(adminID) {
		writeError(w, apperrors.Forbidden("Only circle admins can promote members"))
		return
	}
	if !circle.IsMember(memberID) {
		writeError(w, apperrors.Validation("Only members can be promoted"))
		return
	}
	if circle.IsAdmin(memberID) {
		writeError(w, apperrors.Conflict("User is already an admin"))
		return
	}

	if _, err := database.DB.Collection("circles").UpdateOne(ctx, bson.M{"_id": circleID},
		bson.M{"$addToSet": bson.M{"admins": memberID}}); err != nil {
		writeError(w, apperrors.Wrap(apperrors.CodeInternal, "Failed to promote member", err))
		return
	}

	services.Notifications.EmitTo(ctx, memberID, string(models.ActionPromotedToAdmin),
		fmt.Sprintf("You are now an admin of %s", circle.Title),
		models.CircleMeta(models.ActionPromotedToAdmin, circle.ID, circle.Title))

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Member promoted",
	})
}

// DemoteAdmin removes admin rights from a member. The last admin cannot be
// demoted.
func DemoteAdmin(w http.ResponseWriter, r *http.Request) {
	adminID, ok := requireAuth(w, r)
	if !ok {
		return
	}

	circleID, err := parseObjectID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	memberID, err := parseObjectID(chi.URLParam(r, "userId"))
	if err != nil {
		writeError(w, err)
		return
	}

	ctx, cancel := requestContext()
	defer cancel()

	circle, err := loadCircle(ctx, circleID)
	if err != nil {
		writeError(w, err)
		return
	}
	if !circle.IsAdmin(adminID) {
		writeError(w, apperrors.Forbidden("Only circle admins can demote admins"))
		return
	}
	if !circle.IsAdmin(memberID) {
		writeError(w, apperrors.Validation("User is not an admin"))
		return
	}
	if len(circle.Admins) == 1 {
		writeError(w, apperrors.Validation("Cannot demote the last admin"))
		return
	}

	if _, err := database.DB.Collection("circles").UpdateOne(ctx, bson.M{"_id": circleID},
		bson.M{"$pull": bson.M{"admins": memberID}}); err != nil {
		writeError(w, apperrors.Wrap(apperrors.CodeInternal, "Failed to demote admin", err))
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Admin demoted",
	})
}

func loadCircle(ctx context.Context, id primitive.ObjectID) (*models.Circle, error) {
	var circle models.Circle
	err := database.DB.Collection("circles").FindOne(ctx, bson.M{"_id": id}).Decode(&circle)
	if err == mongo.ErrNoDocuments {
		return nil, apperrors.NotFound("Circle not found")
	}
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, "Failed to load circle", err)
	}
	return &circle, nil
}

// resolveUserSummaries batch-fetches display identities for a set of ids,
// preserving the input order.
func resolveUserSummaries(ctx context.Context, ids []primitive.ObjectID) ([]models.UserSummary, error) {
	if len(ids) == 0 {
		return []models.UserSummary{}, nil
	}

	opts := options.Find().SetProjection(bson.M{"_id": 1, "display_name": 1, "avatar": 1})
	cursor, err := database.DB.Collection("users").Find(ctx, bson.M{"_id": bson.M{"$in": ids}}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var fetched []models.UserSummary
	if err := cursor.All(ctx, &fetched); err != nil {
		return nil, err
	}

	byID := make(map[primitive.ObjectID]models.UserSummary, len(fetched))
	for _, s := range fetched {
		byID[s.ID] = s
	}

	ordered := make([]models.UserSummary, 0, len(ids))
	for _, id := range ids {
		if s, ok := byID[id]; ok {
			ordered = append(ordered, s)
		}
	}
	return ordered, nil
}

func containsObjectID(ids []primitive.ObjectID, id primitive.ObjectID) bool {
	for _, x := range ids {
		if x == id {
			return true
		}
	}
	return false
}
