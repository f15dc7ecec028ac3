package shader

// Vertex attribute locations shared by the terrain programs and the GL device.
const (
	AttribGrid     = 0 // clipmap: ivec2 grid coordinate
	AttribPosition = 0 // mipmap: world position
	AttribNormal   = 1 // mipmap: world normal
)

// ClipmapVertexShader places a clipmap grid vertex from its level's elevation texture and
// blends towards the coarser level near the outer edge.
const ClipmapVertexShader = `#version 410 core
layout(location = 0) in ivec2 aGrid;

uniform mat4 uViewProj;
uniform float uScale;
uniform vec2 uOrigin;
uniform vec2 uOffset;
uniform vec2 uViewerGrid;
uniform float uAlphaOffset;
uniform float uOneOverWidth;
uniform sampler2D uElevation;
uniform sampler2D uNormals;

out vec3 vWorld;
out vec3 vNormal;
out float vAlpha;

void main() {
    vec2 g = vec2(aGrid) + uOffset;
    ivec2 texel = ivec2(g);
    vec2 e = texelFetch(uElevation, texel, 0).rg;
    vec4 n = texelFetch(uNormals, texel, 0);

    vec2 d = abs(g - uViewerGrid) - vec2(uAlphaOffset);
    float alpha = clamp(max(d.x, d.y) * uOneOverWidth, 0.0, 1.0);

    float h = mix(e.x, e.y, alpha);
    vec2 nxz = mix(n.xy, n.zw, alpha);
    vNormal = vec3(nxz.x, sqrt(max(0.0, 1.0 - dot(nxz, nxz))), nxz.y);
    vWorld = vec3(uOrigin.x + g.x * uScale, h, uOrigin.y + g.y * uScale);
    vAlpha = alpha;
    gl_Position = uViewProj * vec4(vWorld, 1.0);
}
`

// MipmapVertexShader transforms a patch vertex.
const MipmapVertexShader = `#version 410 core
layout(location = 0) in vec3 aPosition;
layout(location = 1) in vec3 aNormal;

uniform mat4 uViewProj;

out vec3 vWorld;
out vec3 vNormal;
out float vAlpha;

void main() {
    vWorld = aPosition;
    vNormal = aNormal;
    vAlpha = 0.0;
    gl_Position = uViewProj * vec4(aPosition, 1.0);
}
`

// TerrainFragmentShader shades both programs: height-banded colour, Lambert lighting and
// distance fog. uTint colours each level or tier when debugging.
const TerrainFragmentShader = `#version 410 core
in vec3 vWorld;
in vec3 vNormal;
in float vAlpha;

uniform vec3 uLightDir;
uniform vec3 uEye;
uniform vec3 uTint;
uniform float uMaxHeight;
uniform float uFogFar;

out vec4 FragColor;

void main() {
    vec3 n = normalize(vNormal);
    float t = clamp(vWorld.y / max(uMaxHeight, 1.0), 0.0, 1.0);
    vec3 low = vec3(0.25, 0.42, 0.18);
    vec3 mid = vec3(0.45, 0.38, 0.28);
    vec3 high = vec3(0.92, 0.92, 0.95);
    vec3 base = t < 0.6 ? mix(low, mid, t / 0.6) : mix(mid, high, (t - 0.6) / 0.4);
    base = mix(base, uTint, 0.35);

    float diffuse = max(dot(n, -normalize(uLightDir)), 0.0);
    vec3 color = base * (0.3 + 0.7 * diffuse);

    float fog = clamp(length(vWorld - uEye) / uFogFar, 0.0, 1.0);
    FragColor = vec4(mix(color, vec3(0.62, 0.72, 0.82), fog * fog), 1.0);
}
`
