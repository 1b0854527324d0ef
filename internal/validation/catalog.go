package validation

// Catalog devuelve los esquemas de dominio que se registran al arrancar.
// Cubre los eventos de auth, comunidad, análisis de enlaces y ciclo de
// vida del sistema; puede ampliarse en caliente con RegisterSchema.
func Catalog() map[string]Schema {
	return map[string]Schema{
		// ---------------- Auth ----------------
		"auth.user.registered": {Fields: map[string]Constraint{
			"userId":   {Kind: KindString, Required: true, NonEmpty: true},
			"email":    {Kind: KindString, Required: true, NonEmpty: true},
			"username": {Kind: KindString, NonEmpty: true},
		}},
		"auth.user.login": {Fields: map[string]Constraint{
			"userId":    {Kind: KindString, Required: true, NonEmpty: true},
			"ip":        {Kind: KindString},
			"userAgent": {Kind: KindString},
		}},
		"auth.user.logout": {Fields: map[string]Constraint{
			"userId": {Kind: KindString, Required: true, NonEmpty: true},
		}},

		// ---------------- Comunidad ----------------
		"community.post.created": {Fields: map[string]Constraint{
			"postId":   {Kind: KindString, Required: true, NonEmpty: true},
			"authorId": {Kind: KindString, Required: true, NonEmpty: true},
			"title":    {Kind: KindString, Required: true, NonEmpty: true},
			"body":     {Kind: KindString},
			"tags":     {Kind: KindArray},
		}},
		"community.post.updated": {Fields: map[string]Constraint{
			"postId":  {Kind: KindString, Required: true, NonEmpty: true},
			"changes": {Kind: KindObject, Required: true},
		}},
		"community.comment.created": {Fields: map[string]Constraint{
			"commentId": {Kind: KindString, Required: true, NonEmpty: true},
			"postId":    {Kind: KindString, Required: true, NonEmpty: true},
			"authorId":  {Kind: KindString, Required: true, NonEmpty: true},
			"body":      {Kind: KindString, Required: true},
		}},

		// ------------- Análisis de enlaces -------------
		"link.analysis.requested": {Fields: map[string]Constraint{
			"url":         {Kind: KindString, Required: true, NonEmpty: true},
			"requestedBy": {Kind: KindString, Required: true, NonEmpty: true},
			"priority":    {Kind: KindNumber},
		}},
		"link.analysis.completed": {Fields: map[string]Constraint{
			"url":      {Kind: KindString, Required: true, NonEmpty: true},
			"verdict":  {Kind: KindString, Required: true, Enum: []string{"safe", "suspicious", "malicious"}},
			"score":    {Kind: KindNumber, Required: true},
			"details":  {Kind: KindObject},
			"duration": {Kind: KindNumber},
		}},

		// ---------------- Sistema ----------------
		"system.service.started": {Fields: map[string]Constraint{
			"service": {Kind: KindString, Required: true, NonEmpty: true},
			"version": {Kind: KindString},
		}},
		"system.service.stopped": {Fields: map[string]Constraint{
			"service": {Kind: KindString, Required: true, NonEmpty: true},
			"reason":  {Kind: KindString},
		}},
	}
}
